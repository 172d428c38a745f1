package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stockledger/stockledger/modules/inventory/domain/activity"
	"github.com/stockledger/stockledger/modules/inventory/domain/changerequest"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/pkg/actor"
)

// AuditTrail writes activity_log entries. Direct entries written by the
// same author for the same field and status within the coalesce window
// are merged into one row.
type AuditTrail struct {
	repo   activity.Repository
	window time.Duration
	now    func() time.Time
}

func NewAuditTrail(repo activity.Repository, window time.Duration) *AuditTrail {
	return &AuditTrail{repo: repo, window: window, now: time.Now}
}

func (t *AuditTrail) Record(ctx context.Context, e *activity.Entry) error {
	if e.EntityType == "" {
		e.EntityType = activity.EntityTypeProduct
	}
	if e.IsDirect() && e.FieldName != activity.FieldCreation && t.window > 0 {
		now := t.now()
		prev, err := t.repo.FindRecentDirect(ctx, e.EntityID, e.FieldName, e.CreatedBy, e.Status, now.Add(-t.window))
		switch {
		case err == nil:
			prev.NewValue = e.NewValue
			prev.CreatedAt = now
			if err := t.repo.Update(ctx, prev); err != nil {
				return err
			}
			*e = *prev
			return nil
		case !errors.Is(err, activity.ErrNotFound):
			return err
		}
	}
	return t.repo.Create(ctx, e)
}

// RecordChanges writes one direct entry per field change.
func (t *AuditTrail) RecordChanges(ctx context.Context, a actor.Actor, productID int64, changes product.Changes, status activity.Status) error {
	for _, c := range changes {
		e := &activity.Entry{
			EntityID:  productID,
			FieldName: string(c.Field),
			OldValue:  c.Old,
			NewValue:  c.New,
			Status:    status,
			CreatedBy: a.ID,
		}
		if err := t.Record(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// RecordCreation writes the entry for a product inserted by a.
func (t *AuditTrail) RecordCreation(ctx context.Context, a actor.Actor, productID int64) error {
	return t.Record(ctx, &activity.Entry{
		EntityID:  productID,
		FieldName: activity.FieldCreation,
		NewValue:  "New product added by " + a.DisplayName(),
		Status:    activity.StatusSuccess,
		CreatedBy: a.ID,
	})
}

// RecordFailedCreation keeps the rejected payload so the creation can be
// retried.
func (t *AuditTrail) RecordFailedCreation(ctx context.Context, a actor.Actor, payload product.Payload) error {
	raw, err := payload.Marshal()
	if err != nil {
		return err
	}
	return t.Record(ctx, &activity.Entry{
		EntityID:  product.NewEntity,
		FieldName: activity.FieldCreation,
		NewValue:  raw,
		Status:    activity.StatusFailed,
		CreatedBy: a.ID,
	})
}

// Mirror writes the pending entry shadowing r.
func (t *AuditTrail) Mirror(ctx context.Context, r *changerequest.PendingRequest) (*activity.Entry, error) {
	_, field, oldValue, newValue, err := changerequest.Columns(r.Change)
	if err != nil {
		return nil, err
	}
	requestID := r.ID
	e := &activity.Entry{
		EntityType: activity.EntityTypeProduct,
		EntityID:   r.EntityID,
		FieldName:  field,
		OldValue:   oldValue,
		NewValue:   newValue,
		Status:     activity.StatusPending,
		CreatedBy:  r.RequestedBy,
		RequestID:  &requestID,
	}
	if err := t.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DropPending removes the pending mirror of a superseded request.
func (t *AuditTrail) DropPending(ctx context.Context, entityID int64, field string) (int64, error) {
	return t.repo.DeletePending(ctx, entityID, field)
}

// ResolveMirror moves the mirror of a resolved request to the request's
// status. A request without a mirror gets one written in its final state.
func (t *AuditTrail) ResolveMirror(ctx context.Context, r *changerequest.PendingRequest) (*activity.Entry, error) {
	status := activity.StatusApproved
	if r.Status == changerequest.StatusRejected {
		status = activity.StatusRejected
	}

	e, err := t.repo.GetByRequestID(ctx, r.ID)
	if errors.Is(err, activity.ErrNotFound) {
		logWithFields(ctx, logrus.WarnLevel, "inventory.audit.mirror_missing", logrus.Fields{
			"request_id": r.ID,
			"product_id": r.EntityID,
		})
		e, err = t.Mirror(ctx, r)
	}
	if err != nil {
		return nil, err
	}

	e.EntityID = r.EntityID
	e.Status = status
	e.AdminID = r.AdminID
	e.RejectionReason = r.RejectionReason
	if err := t.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}
