package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/stockledger/stockledger/modules/inventory/domain/activity"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/pkg/composables"
	"github.com/stockledger/stockledger/pkg/repo"
)

const productColumns = `p.id, p.name, p.quantity, p.unit_price::text, p.category, p.description,
	p.status, p.created_at, p.updated_at, p.updated_by`

type ProductRepository struct{}

func NewProductRepository() product.Repository {
	return &ProductRepository{}
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id)
}

// GetForUpdate locks the product row until the surrounding transaction ends.
func (r *ProductRepository) GetForUpdate(ctx context.Context, id int64) (*product.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1 FOR UPDATE`, id)
}

func (r *ProductRepository) getOne(ctx context.Context, query string, id int64) (*product.Product, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	p, err := scanProduct(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, gerrors.Wrap(err, "get product")
	}
	return p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product, actorID int64) (*product.Product, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	status := p.Status
	if status == "" {
		status = product.StatusActive
	}
	created, err := scanProduct(tx.QueryRow(ctx, `
		INSERT INTO products AS p (name, quantity, unit_price, category, description, status, updated_by)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
		RETURNING `+productColumns,
		p.Name,
		p.Quantity,
		p.UnitPrice.String(),
		p.Category,
		p.Description,
		string(status),
		actorID,
	))
	if err != nil {
		return nil, gerrors.Wrap(err, "create product")
	}
	return created, nil
}

// Update writes the canonical values of changes and stamps updated_at and
// updated_by.
func (r *ProductRepository) Update(ctx context.Context, id int64, changes product.Changes, actorID int64) (*product.Product, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	if changes.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	ph := &repo.Placeholders{}
	sets := make([]string, 0, len(changes)+2)
	for _, c := range changes {
		value, err := columnValue(c)
		if err != nil {
			return nil, err
		}
		cast := ""
		if c.Field == product.FieldUnitPrice {
			cast = "::numeric"
		}
		sets = append(sets, fmt.Sprintf("%s = %s%s", string(c.Field), ph.Add(value), cast))
	}
	sets = append(sets, "updated_at = NOW()", "updated_by = "+ph.Add(actorID))

	query := `UPDATE products AS p SET ` + strings.Join(sets, ", ") +
		` WHERE p.id = ` + ph.Add(id) + ` RETURNING ` + productColumns

	updated, err := scanProduct(tx.QueryRow(ctx, query, ph.Args()...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, gerrors.Wrap(err, "update product")
	}
	return updated, nil
}

func columnValue(c product.FieldChange) (any, error) {
	if _, ok := product.ParseField(string(c.Field)); !ok {
		return nil, &product.InvalidValueError{Field: c.Field, Value: c.New}
	}
	if c.Field == product.FieldQuantity {
		q, err := strconv.ParseInt(c.New, 10, 64)
		if err != nil {
			return nil, &product.InvalidValueError{Field: c.Field, Value: c.New}
		}
		return q, nil
	}
	return c.New, nil
}

// Deactivate marks the active products among ids inactive and returns the
// ids it changed.
func (r *ProductRepository) Deactivate(ctx context.Context, ids []int64, actorID int64) ([]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		UPDATE products
		SET status = 'inactive', updated_at = NOW(), updated_by = $1
		WHERE id = ANY($2) AND status = 'active'
		RETURNING id`,
		actorID, ids,
	)
	if err != nil {
		return nil, gerrors.Wrap(err, "deactivate products")
	}
	defer rows.Close()

	var changed []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		changed = append(changed, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changed, nil
}

func (r *ProductRepository) ListWithStatus(ctx context.Context, params *product.FindParams) ([]*product.WithStatus, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &product.FindParams{}
	}

	ph := &repo.Placeholders{}
	ph.Add(activity.EntityTypeProduct)
	where := buildProductFilters(params, ph)
	direction := "ASC"
	if params.Descending {
		direction = "DESC"
	}
	query := `
		SELECT ` + productColumns + `, la.status, la.field_name, la.rejection_reason
		FROM products p
		LEFT JOIN LATERAL (
			SELECT a.status, a.field_name, a.rejection_reason
			FROM activity_log a
			WHERE a.entity_type = $1 AND a.entity_id = p.id
			ORDER BY CASE a.status WHEN 'pending' THEN 0 WHEN 'rejected' THEN 1 ELSE 2 END,
				a.created_at DESC, a.id DESC
			LIMIT 1
		) la ON TRUE
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.` + string(product.ParseSortField(string(params.SortBy))) + ` ` + direction + `, p.created_at DESC, p.id DESC
		` + repo.FormatLimitOffset(params.Limit, params.Offset)

	rows, err := tx.Query(ctx, query, ph.Args()...)
	if err != nil {
		return nil, gerrors.Wrap(err, "list products")
	}
	defer rows.Close()

	var out []*product.WithStatus
	for rows.Next() {
		var (
			row             productRow
			latestStatus    *string
			latestField     *string
			rejectionReason *string
		)
		if err := rows.Scan(append(row.targets(), &latestStatus, &latestField, &rejectionReason)...); err != nil {
			return nil, err
		}
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		item := &product.WithStatus{Product: *p}
		if latestStatus != nil {
			item.Latest = &product.LatestActivity{
				Status:          *latestStatus,
				FieldName:       deref(latestField),
				RejectionReason: rejectionReason,
			}
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProductRepository) Count(ctx context.Context, params *product.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	if params == nil {
		params = &product.FindParams{}
	}
	ph := &repo.Placeholders{}
	where := buildProductFilters(params, ph)

	var count int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM products p WHERE `+strings.Join(where, " AND "),
		ph.Args()...,
	).Scan(&count); err != nil {
		return 0, gerrors.Wrap(err, "count products")
	}
	return count, nil
}

func buildProductFilters(params *product.FindParams, ph *repo.Placeholders) []string {
	where := []string{"p.status = 'active'"}
	if search := strings.TrimSpace(params.Search); search != "" {
		arg := ph.Add("%" + search + "%")
		where = append(where, fmt.Sprintf(
			"(p.id::text ILIKE %[1]s OR p.name ILIKE %[1]s OR p.category ILIKE %[1]s OR p.unit_price::text ILIKE %[1]s OR p.quantity::text ILIKE %[1]s)",
			arg,
		))
	}
	return where
}

type productRow struct {
	ID          int64
	Name        string
	Quantity    int64
	UnitPrice   string
	Category    string
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UpdatedBy   *int64
}

func (r *productRow) targets() []any {
	return []any{
		&r.ID, &r.Name, &r.Quantity, &r.UnitPrice, &r.Category, &r.Description,
		&r.Status, &r.CreatedAt, &r.UpdatedAt, &r.UpdatedBy,
	}
}

func (r *productRow) toDomain() (*product.Product, error) {
	price, err := decimal.NewFromString(r.UnitPrice)
	if err != nil {
		return nil, gerrors.Wrapf(err, "product %d unit_price", r.ID)
	}
	return &product.Product{
		ID:          r.ID,
		Name:        r.Name,
		Quantity:    r.Quantity,
		UnitPrice:   price,
		Category:    r.Category,
		Description: r.Description,
		Status:      product.Status(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		UpdatedBy:   r.UpdatedBy,
	}, nil
}

func scanProduct(row pgx.Row) (*product.Product, error) {
	var r productRow
	if err := row.Scan(r.targets()...); err != nil {
		return nil, err
	}
	return r.toDomain()
}
