package persistence

import (
	"context"
	"time"

	gerrors "github.com/go-faster/errors"

	"github.com/stockledger/stockledger/modules/inventory/domain/fieldschema"
	"github.com/stockledger/stockledger/pkg/composables"
	"github.com/stockledger/stockledger/pkg/repo"
)

type FieldSchemaLogRepository struct{}

func NewFieldSchemaLogRepository() fieldschema.LogRepository {
	return &FieldSchemaLogRepository{}
}

func (r *FieldSchemaLogRepository) Create(ctx context.Context, l *fieldschema.Log) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	logType := l.LogType
	if logType == "" {
		logType = fieldschema.LogTypeLogic
	}
	return tx.QueryRow(ctx, `
		INSERT INTO field_schema_logs (field_name, old_logic, new_logic, created_by, log_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		l.FieldName, l.OldLogic, l.NewLogic, l.CreatedBy, logType,
	).Scan(&l.ID, &l.CreatedAt)
}

func (r *FieldSchemaLogRepository) List(ctx context.Context, limit, offset int) ([]*fieldschema.Log, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, field_name, old_logic, new_logic, log_type, created_by, created_at
		FROM field_schema_logs
		ORDER BY created_at DESC, id DESC
		`+repo.FormatLimitOffset(limit, offset))
	if err != nil {
		return nil, gerrors.Wrap(err, "list field schema logs")
	}
	defer rows.Close()

	var out []*fieldschema.Log
	for rows.Next() {
		var (
			l         fieldschema.Log
			createdAt time.Time
		)
		if err := rows.Scan(&l.ID, &l.FieldName, &l.OldLogic, &l.NewLogic, &l.LogType, &l.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		l.CreatedAt = createdAt
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FieldSchemaLogRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM field_schema_logs`).Scan(&count); err != nil {
		return 0, gerrors.Wrap(err, "count field schema logs")
	}
	return count, nil
}

// SchemaColumnRepository reads column metadata from information_schema.
type SchemaColumnRepository struct{}

func NewSchemaColumnRepository() fieldschema.ColumnRepository {
	return &SchemaColumnRepository{}
}

// EditableColumns lists the columns of tableName a form may bind to, in
// table order. Bookkeeping columns are excluded.
func (r *SchemaColumnRepository) EditableColumns(ctx context.Context, tableName string) ([]string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = $1
			AND table_schema = 'public'
			AND column_name NOT IN ('id', 'created_at', 'updated_at', 'updated_by', 'status')
		ORDER BY ordinal_position ASC`,
		tableName,
	)
	if err != nil {
		return nil, gerrors.Wrap(err, "list schema columns")
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}
