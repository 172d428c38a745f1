package changerequest

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("pending request not found")

type FindParams struct {
	// Status is empty for every status.
	Status      Status
	Search      string
	RequestedBy *int64
	Limit       int
	Offset      int
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*PendingRequest, error)
	GetForUpdate(ctx context.Context, id int64) (*PendingRequest, error)
	Create(ctx context.Context, r *PendingRequest) error
	// Resolve persists status, admin, reason and entity id.
	Resolve(ctx context.Context, r *PendingRequest) error
	DeletePending(ctx context.Context, entityID int64, fieldName string) ([]int64, error)
	List(ctx context.Context, params *FindParams) ([]*PendingRequest, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
}
