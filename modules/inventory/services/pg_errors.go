package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stockledger/stockledger/modules/inventory/domain/activity"
	"github.com/stockledger/stockledger/modules/inventory/domain/changerequest"
	"github.com/stockledger/stockledger/modules/inventory/domain/fieldschema"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/pkg/serrors"
)

var (
	ErrProductNotFound  = serrors.NotFound("PRODUCT_NOT_FOUND", "product not found", nil)
	ErrRequestNotFound  = serrors.NotFound("REQUEST_NOT_FOUND", "pending request not found", nil)
	ErrActivityNotFound = serrors.NotFound("ACTIVITY_NOT_FOUND", "activity entry not found", nil)
	ErrAdminRequired    = serrors.Forbidden("ADMIN_REQUIRED", "admin role required")
	ErrAlreadyResolved  = serrors.Conflict("REQUEST_ALREADY_RESOLVED", "request has already been resolved", nil)
	ErrChangePending    = serrors.Conflict("CHANGE_ALREADY_PENDING", "another change for this field is pending", nil)
)

// isUniqueViolation reports a 23505 on constraint, or on any constraint when
// constraint is empty.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// mapStoreError turns repository and driver errors into serrors kinds.
// Errors that already carry a kind pass through.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}

	var be *serrors.BaseError
	if errors.As(err, &be) {
		return err
	}

	switch {
	case errors.Is(err, product.ErrNotFound):
		return ErrProductNotFound.WithCause(err)
	case errors.Is(err, changerequest.ErrNotFound):
		return ErrRequestNotFound.WithCause(err)
	case errors.Is(err, activity.ErrNotFound):
		return ErrActivityNotFound.WithCause(err)
	case errors.Is(err, fieldschema.ErrFieldNotFound):
		return serrors.NotFound("FORM_FIELD_NOT_FOUND", "form field not found", err)
	case errors.Is(err, pgx.ErrNoRows):
		return serrors.NotFound("INVENTORY_NOT_FOUND", "not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return serrors.Persistence("INVENTORY_STORE_ERROR", "store operation failed", err)
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		recordWriteConflict("unique")
		switch pgErr.ConstraintName {
		case "uq_pending_requests_active_field", "uq_activity_log_pending_field":
			return ErrChangePending.WithCause(err)
		default:
			return serrors.Conflict("INVENTORY_CONFLICT", "unique constraint violated", err)
		}
	case "23503": // foreign_key_violation
		recordWriteConflict("foreign_key")
		return serrors.NotFound("INVENTORY_REFERENCE_NOT_FOUND", "referenced row not found", err)
	case "23514": // check_violation
		return serrors.Validation("INVENTORY_CHECK_VIOLATION", "value violates a table constraint", nil).WithCause(err)
	case "40001", "40P01": // serialization_failure, deadlock_detected
		recordWriteConflict("serialization")
		return serrors.Conflict("INVENTORY_CONCURRENT_UPDATE", "concurrent update, try again", err)
	default:
		return serrors.Persistence("INVENTORY_DB_ERROR", fmt.Sprintf("database error (%s)", pgErr.Code), err)
	}
}
