package changerequest

import (
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/stockledger/stockledger/modules/inventory/domain/product"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Kind string

const (
	KindFieldUpdate  Kind = "field_update"
	KindEntityCreate Kind = "entity_create"
)

// CreateColumn is stored in field_name for entity_create rows.
const CreateColumn = "__create__"

type Decision string

const (
	DecisionApprove Decision = "approved"
	DecisionReject  Decision = "rejected"
)

func ParseDecision(s string) (Decision, bool) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionApprove, "approve":
		return DecisionApprove, true
	case DecisionReject, "reject":
		return DecisionReject, true
	}
	return "", false
}

var (
	ErrNotPending     = errors.New("request is no longer pending")
	ErrReasonRequired = errors.New("rejection reason is required")
	ErrUnknownKind    = errors.New("unknown request kind")
)

// Change is either a FieldUpdate or an EntityCreate.
type Change interface {
	Kind() Kind
}

type FieldUpdate struct {
	Field product.Field
	Old   string
	New   string
}

func (FieldUpdate) Kind() Kind { return KindFieldUpdate }

type EntityCreate struct {
	Payload product.Payload
}

func (EntityCreate) Kind() Kind { return KindEntityCreate }

type PendingRequest struct {
	ID              int64
	EntityID        int64
	Change          Change
	Status          Status
	RequestedBy     int64
	AdminID         *int64
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewFieldUpdate(entityID int64, c product.FieldChange, requestedBy int64) *PendingRequest {
	return &PendingRequest{
		EntityID:    entityID,
		Change:      FieldUpdate{Field: c.Field, Old: c.Old, New: c.New},
		Status:      StatusPending,
		RequestedBy: requestedBy,
	}
}

func NewEntityCreate(payload product.Payload, requestedBy int64) *PendingRequest {
	return &PendingRequest{
		Change:      EntityCreate{Payload: payload},
		Status:      StatusPending,
		RequestedBy: requestedBy,
	}
}

func (r *PendingRequest) IsPending() bool { return r.Status == StatusPending }

// FieldName is the value of the field_name column.
func (r *PendingRequest) FieldName() string {
	switch c := r.Change.(type) {
	case FieldUpdate:
		return string(c.Field)
	case EntityCreate:
		return CreateColumn
	}
	return ""
}

func (r *PendingRequest) Approve(adminID int64) error {
	if !r.IsPending() {
		return ErrNotPending
	}
	r.Status = StatusApproved
	r.AdminID = &adminID
	return nil
}

func (r *PendingRequest) Reject(adminID int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	if !r.IsPending() {
		return ErrNotPending
	}
	r.Status = StatusRejected
	r.AdminID = &adminID
	r.RejectionReason = &reason
	return nil
}

// Columns flattens the change into kind, field_name, old_value and
// new_value.
func Columns(c Change) (Kind, string, string, string, error) {
	switch v := c.(type) {
	case FieldUpdate:
		return KindFieldUpdate, string(v.Field), v.Old, v.New, nil
	case EntityCreate:
		raw, err := v.Payload.Marshal()
		if err != nil {
			return "", "", "", "", err
		}
		return KindEntityCreate, CreateColumn, "", raw, nil
	}
	return "", "", "", "", ErrUnknownKind
}

// FromColumns is the inverse of Columns.
func FromColumns(kind Kind, fieldName, oldValue, newValue string) (Change, error) {
	switch kind {
	case KindFieldUpdate:
		f, ok := product.ParseField(fieldName)
		if !ok {
			return nil, errors.Errorf("request field %q is not mutable", fieldName)
		}
		return FieldUpdate{Field: f, Old: oldValue, New: newValue}, nil
	case KindEntityCreate:
		payload, err := product.UnmarshalPayload(newValue)
		if err != nil {
			return nil, err
		}
		return EntityCreate{Payload: payload}, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
}
