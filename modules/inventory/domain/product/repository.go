package product

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("product not found")

type SortField string

const (
	SortByID        SortField = "id"
	SortByName      SortField = "name"
	SortByQuantity  SortField = "quantity"
	SortByUnitPrice SortField = "unit_price"
)

func ParseSortField(s string) SortField {
	switch SortField(s) {
	case SortByName, SortByQuantity, SortByUnitPrice:
		return SortField(s)
	default:
		return SortByID
	}
}

type FindParams struct {
	Search     string
	SortBy     SortField
	Descending bool
	Limit      int
	Offset     int
}

// LatestActivity is the audit entry decorating a product in listings.
type LatestActivity struct {
	Status          string
	FieldName       string
	RejectionReason *string
}

type WithStatus struct {
	Product
	Latest *LatestActivity
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetForUpdate(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, p *Product, actorID int64) (*Product, error)
	Update(ctx context.Context, id int64, changes Changes, actorID int64) (*Product, error)
	Deactivate(ctx context.Context, ids []int64, actorID int64) ([]int64, error)
	ListWithStatus(ctx context.Context, params *FindParams) ([]*WithStatus, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
}
