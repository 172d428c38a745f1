package activity

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
	StatusApproved Status = "approved"
)

const EntityTypeProduct = "product"

// FieldCreation marks the entry written when a product is created.
const FieldCreation = "creation"

var ErrNotFound = errors.New("activity entry not found")

type Entry struct {
	ID              int64
	EntityType      string
	EntityID        int64
	FieldName       string
	OldValue        string
	NewValue        string
	Status          Status
	CreatedBy       int64
	AdminID         *int64
	RejectionReason *string
	RequestID       *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsDirect reports whether the entry records a change applied without a
// request.
func (e *Entry) IsDirect() bool {
	return e.RequestID == nil
}

type FindParams struct {
	// VisibleTo limits results to entries authored by, or linked to
	// requests of, the given user.
	VisibleTo  *int64
	CreatedBy  *int64
	EntityType string
	EntityID   *int64
	Status     Status
	Limit      int
	Offset     int
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Entry, error)
	GetForUpdate(ctx context.Context, id int64) (*Entry, error)
	GetByRequestID(ctx context.Context, requestID int64) (*Entry, error)
	// FindRecentDirect returns the newest direct entry matching entity,
	// field, author and status created after since.
	FindRecentDirect(ctx context.Context, entityID int64, fieldName string, createdBy int64, status Status, since time.Time) (*Entry, error)
	Create(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error
	DeletePending(ctx context.Context, entityID int64, fieldName string) (int64, error)
	List(ctx context.Context, params *FindParams) ([]*Entry, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
}
