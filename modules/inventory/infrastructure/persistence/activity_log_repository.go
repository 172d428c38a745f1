package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/stockledger/stockledger/modules/inventory/domain/activity"
	"github.com/stockledger/stockledger/pkg/composables"
	"github.com/stockledger/stockledger/pkg/repo"
)

// PendingMirrorIndex guards the one-pending-mirror-per-field rule.
const PendingMirrorIndex = "uq_activity_log_pending_field"

const activityColumns = `a.id, a.entity_type, a.entity_id, a.field_name, a.old_value, a.new_value, a.status,
	a.created_by, a.admin_id, a.rejection_reason, a.request_id, a.created_at, a.updated_at`

type ActivityLogRepository struct{}

func NewActivityLogRepository() activity.Repository {
	return &ActivityLogRepository{}
}

func (r *ActivityLogRepository) GetByID(ctx context.Context, id int64) (*activity.Entry, error) {
	return r.getOne(ctx, `SELECT `+activityColumns+` FROM activity_log a WHERE a.id = $1`, id)
}

func (r *ActivityLogRepository) GetForUpdate(ctx context.Context, id int64) (*activity.Entry, error) {
	return r.getOne(ctx, `SELECT `+activityColumns+` FROM activity_log a WHERE a.id = $1 FOR UPDATE`, id)
}

func (r *ActivityLogRepository) GetByRequestID(ctx context.Context, requestID int64) (*activity.Entry, error) {
	return r.getOne(ctx, `
		SELECT `+activityColumns+` FROM activity_log a
		WHERE a.request_id = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT 1`, requestID)
}

func (r *ActivityLogRepository) FindRecentDirect(
	ctx context.Context,
	entityID int64,
	fieldName string,
	createdBy int64,
	status activity.Status,
	since time.Time,
) (*activity.Entry, error) {
	return r.getOne(ctx, `
		SELECT `+activityColumns+` FROM activity_log a
		WHERE a.entity_id = $1
			AND a.field_name = $2
			AND a.created_by = $3
			AND a.status = $4
			AND a.request_id IS NULL
			AND a.created_at > $5
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT 1`,
		entityID, fieldName, createdBy, string(status), since,
	)
}

func (r *ActivityLogRepository) getOne(ctx context.Context, query string, args ...any) (*activity.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var row activityRow
	if err := tx.QueryRow(ctx, query, args...).Scan(row.targets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, activity.ErrNotFound
		}
		return nil, gerrors.Wrap(err, "get activity entry")
	}
	return row.toDomain(), nil
}

func (r *ActivityLogRepository) Create(ctx context.Context, e *activity.Entry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if e.EntityType == "" {
		e.EntityType = activity.EntityTypeProduct
	}
	return tx.QueryRow(ctx, `
		INSERT INTO activity_log (entity_type, entity_id, field_name, old_value, new_value, status,
			created_by, admin_id, rejection_reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		e.EntityType,
		e.EntityID,
		e.FieldName,
		e.OldValue,
		e.NewValue,
		string(e.Status),
		e.CreatedBy,
		e.AdminID,
		e.RejectionReason,
		e.RequestID,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update rewrites the mutable columns of e. A zero CreatedAt keeps the
// stored value.
func (r *ActivityLogRepository) Update(ctx context.Context, e *activity.Entry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var createdAt *time.Time
	if !e.CreatedAt.IsZero() {
		createdAt = &e.CreatedAt
	}
	err = tx.QueryRow(ctx, `
		UPDATE activity_log
		SET entity_id = $1,
			old_value = $2,
			new_value = $3,
			status = $4,
			created_by = $5,
			admin_id = $6,
			rejection_reason = $7,
			created_at = COALESCE($8, created_at),
			updated_at = NOW()
		WHERE id = $9
		RETURNING created_at, updated_at`,
		e.EntityID,
		e.OldValue,
		e.NewValue,
		string(e.Status),
		e.CreatedBy,
		e.AdminID,
		e.RejectionReason,
		createdAt,
		e.ID,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return activity.ErrNotFound
	}
	return err
}

func (r *ActivityLogRepository) DeletePending(ctx context.Context, entityID int64, fieldName string) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `
		DELETE FROM activity_log
		WHERE entity_type = $1 AND entity_id = $2 AND field_name = $3 AND status = 'pending'`,
		activity.EntityTypeProduct, entityID, fieldName,
	)
	if err != nil {
		return 0, gerrors.Wrap(err, "delete pending activity")
	}
	return tag.RowsAffected(), nil
}

func (r *ActivityLogRepository) List(ctx context.Context, params *activity.FindParams) ([]*activity.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &activity.FindParams{}
	}
	ph := &repo.Placeholders{}
	where := buildActivityFilters(params, ph)
	query := `SELECT ` + activityColumns + ` FROM activity_log a
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY a.created_at DESC, a.id DESC
		` + repo.FormatLimitOffset(params.Limit, params.Offset)

	rows, err := tx.Query(ctx, query, ph.Args()...)
	if err != nil {
		return nil, gerrors.Wrap(err, "list activity")
	}
	defer rows.Close()

	var out []*activity.Entry
	for rows.Next() {
		var row activityRow
		if err := rows.Scan(row.targets()...); err != nil {
			return nil, err
		}
		out = append(out, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ActivityLogRepository) Count(ctx context.Context, params *activity.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	if params == nil {
		params = &activity.FindParams{}
	}
	ph := &repo.Placeholders{}
	where := buildActivityFilters(params, ph)

	var count int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_log a WHERE `+strings.Join(where, " AND "),
		ph.Args()...,
	).Scan(&count); err != nil {
		return 0, gerrors.Wrap(err, "count activity")
	}
	return count, nil
}

func buildActivityFilters(params *activity.FindParams, ph *repo.Placeholders) []string {
	where := []string{"TRUE"}
	if params.VisibleTo != nil {
		arg := ph.Add(*params.VisibleTo)
		where = append(where, "(a.created_by = "+arg+
			" OR a.request_id IN (SELECT pr.id FROM pending_requests pr WHERE pr.requested_by = "+arg+"))")
	}
	if params.CreatedBy != nil {
		where = append(where, "a.created_by = "+ph.Add(*params.CreatedBy))
	}
	if t := strings.TrimSpace(params.EntityType); t != "" {
		where = append(where, "a.entity_type = "+ph.Add(t))
	}
	if params.EntityID != nil {
		where = append(where, "a.entity_id = "+ph.Add(*params.EntityID))
	}
	if params.Status != "" {
		where = append(where, "a.status = "+ph.Add(string(params.Status)))
	}
	return where
}

type activityRow struct {
	ID              int64
	EntityType      string
	EntityID        int64
	FieldName       string
	OldValue        string
	NewValue        string
	Status          string
	CreatedBy       int64
	AdminID         *int64
	RejectionReason *string
	RequestID       *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r *activityRow) targets() []any {
	return []any{
		&r.ID, &r.EntityType, &r.EntityID, &r.FieldName, &r.OldValue, &r.NewValue, &r.Status,
		&r.CreatedBy, &r.AdminID, &r.RejectionReason, &r.RequestID, &r.CreatedAt, &r.UpdatedAt,
	}
}

func (r *activityRow) toDomain() *activity.Entry {
	return &activity.Entry{
		ID:              r.ID,
		EntityType:      r.EntityType,
		EntityID:        r.EntityID,
		FieldName:       r.FieldName,
		OldValue:        r.OldValue,
		NewValue:        r.NewValue,
		Status:          activity.Status(r.Status),
		CreatedBy:       r.CreatedBy,
		AdminID:         r.AdminID,
		RejectionReason: r.RejectionReason,
		RequestID:       r.RequestID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
