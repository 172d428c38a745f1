package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/stockledger/stockledger/modules/inventory/domain/changerequest"
	"github.com/stockledger/stockledger/pkg/composables"
	"github.com/stockledger/stockledger/pkg/repo"
)

// PendingRequestIndex guards the one-pending-request-per-field rule.
const PendingRequestIndex = "uq_pending_requests_active_field"

const changeRequestColumns = `id, entity_id, kind, field_name, old_value, new_value, status,
	requested_by, admin_id, rejection_reason, created_at, updated_at`

type ChangeRequestRepository struct{}

func NewChangeRequestRepository() changerequest.Repository {
	return &ChangeRequestRepository{}
}

func (r *ChangeRequestRepository) GetByID(ctx context.Context, id int64) (*changerequest.PendingRequest, error) {
	return r.getOne(ctx, `SELECT `+changeRequestColumns+` FROM pending_requests WHERE id = $1`, id)
}

func (r *ChangeRequestRepository) GetForUpdate(ctx context.Context, id int64) (*changerequest.PendingRequest, error) {
	return r.getOne(ctx, `SELECT `+changeRequestColumns+` FROM pending_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *ChangeRequestRepository) getOne(ctx context.Context, query string, id int64) (*changerequest.PendingRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var row changeRequestRow
	if err := tx.QueryRow(ctx, query, id).Scan(row.targets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, changerequest.ErrNotFound
		}
		return nil, gerrors.Wrap(err, "get pending request")
	}
	return row.toDomain()
}

func (r *ChangeRequestRepository) Create(ctx context.Context, req *changerequest.PendingRequest) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	kind, field, oldValue, newValue, err := changerequest.Columns(req.Change)
	if err != nil {
		return err
	}
	status := req.Status
	if status == "" {
		status = changerequest.StatusPending
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO pending_requests (entity_id, kind, field_name, old_value, new_value, status, requested_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		req.EntityID,
		string(kind),
		field,
		oldValue,
		newValue,
		string(status),
		req.RequestedBy,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return err
	}
	req.Status = status
	return nil
}

func (r *ChangeRequestRepository) Resolve(ctx context.Context, req *changerequest.PendingRequest) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		UPDATE pending_requests
		SET status = $1, admin_id = $2, rejection_reason = $3, entity_id = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`,
		string(req.Status),
		req.AdminID,
		req.RejectionReason,
		req.EntityID,
		req.ID,
	).Scan(&req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return changerequest.ErrNotFound
	}
	return err
}

// DeletePending removes the pending field update for (entityID, fieldName)
// and returns the ids of the removed rows.
func (r *ChangeRequestRepository) DeletePending(ctx context.Context, entityID int64, fieldName string) ([]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		DELETE FROM pending_requests
		WHERE entity_id = $1 AND field_name = $2 AND status = 'pending' AND kind = 'field_update'
		RETURNING id`,
		entityID, fieldName,
	)
	if err != nil {
		return nil, gerrors.Wrap(err, "delete pending requests")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ChangeRequestRepository) List(ctx context.Context, params *changerequest.FindParams) ([]*changerequest.PendingRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &changerequest.FindParams{}
	}
	ph := &repo.Placeholders{}
	where := buildChangeRequestFilters(params, ph)
	query := `SELECT ` + changeRequestColumns + ` FROM pending_requests
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC
		` + repo.FormatLimitOffset(params.Limit, params.Offset)

	rows, err := tx.Query(ctx, query, ph.Args()...)
	if err != nil {
		return nil, gerrors.Wrap(err, "list pending requests")
	}
	defer rows.Close()

	var out []*changerequest.PendingRequest
	for rows.Next() {
		var row changeRequestRow
		if err := rows.Scan(row.targets()...); err != nil {
			return nil, err
		}
		req, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ChangeRequestRepository) Count(ctx context.Context, params *changerequest.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	if params == nil {
		params = &changerequest.FindParams{}
	}
	ph := &repo.Placeholders{}
	where := buildChangeRequestFilters(params, ph)

	var count int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM pending_requests WHERE `+strings.Join(where, " AND "),
		ph.Args()...,
	).Scan(&count); err != nil {
		return 0, gerrors.Wrap(err, "count pending requests")
	}
	return count, nil
}

func buildChangeRequestFilters(params *changerequest.FindParams, ph *repo.Placeholders) []string {
	where := []string{"TRUE"}
	if params.Status != "" {
		where = append(where, "status = "+ph.Add(string(params.Status)))
	}
	if params.RequestedBy != nil {
		where = append(where, "requested_by = "+ph.Add(*params.RequestedBy))
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		where = append(where, "entity_id::text ILIKE "+ph.Add("%"+search+"%"))
	}
	return where
}

type changeRequestRow struct {
	ID              int64
	EntityID        int64
	Kind            string
	FieldName       string
	OldValue        string
	NewValue        string
	Status          string
	RequestedBy     int64
	AdminID         *int64
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r *changeRequestRow) targets() []any {
	return []any{
		&r.ID, &r.EntityID, &r.Kind, &r.FieldName, &r.OldValue, &r.NewValue, &r.Status,
		&r.RequestedBy, &r.AdminID, &r.RejectionReason, &r.CreatedAt, &r.UpdatedAt,
	}
}

func (r *changeRequestRow) toDomain() (*changerequest.PendingRequest, error) {
	change, err := changerequest.FromColumns(changerequest.Kind(r.Kind), r.FieldName, r.OldValue, r.NewValue)
	if err != nil {
		return nil, gerrors.Wrapf(err, "pending request %d", r.ID)
	}
	return &changerequest.PendingRequest{
		ID:              r.ID,
		EntityID:        r.EntityID,
		Change:          change,
		Status:          changerequest.Status(r.Status),
		RequestedBy:     r.RequestedBy,
		AdminID:         r.AdminID,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}
