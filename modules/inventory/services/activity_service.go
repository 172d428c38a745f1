package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/stockledger/stockledger/modules/inventory/domain/activity"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/serrors"
)

var ErrNotRetryable = serrors.Conflict("ACTIVITY_NOT_RETRYABLE", "only failed entries can be retried", nil)

type ActivityService struct {
	gateway *ProductService
	repo    activity.Repository
	config  ConfigProvider
}

func NewActivityService(gateway *ProductService, repo activity.Repository, config ConfigProvider) *ActivityService {
	return &ActivityService{gateway: gateway, repo: repo, config: config}
}

// Retry re-applies a failed entry with the privileged path. On success the
// entry itself becomes the success record.
func (s *ActivityService) Retry(ctx context.Context, admin actor.Actor, id int64) (*activity.Entry, error) {
	if !admin.IsAdmin() {
		return nil, ErrAdminRequired
	}
	rules, err := s.config.Rules(ctx)
	if err != nil {
		return nil, err
	}

	var entry *activity.Entry
	err = inTxFn(ctx, func(txCtx context.Context) error {
		var err error
		entry, err = s.repo.GetForUpdate(txCtx, id)
		if err != nil {
			return mapStoreError(err)
		}
		if entry.Status != activity.StatusFailed {
			return ErrNotRetryable
		}

		if entry.FieldName == activity.FieldCreation {
			err = s.retryCreation(txCtx, admin, entry, rules)
		} else {
			err = s.retryField(txCtx, admin, entry, rules)
		}
		if err != nil {
			return err
		}

		adminID := admin.ID
		entry.Status = activity.StatusSuccess
		entry.AdminID = &adminID
		return s.repo.Update(txCtx, entry)
	})
	recordRetry(err == nil)
	if err != nil {
		return nil, mapStoreError(err)
	}

	logWithFields(ctx, logrus.InfoLevel, "inventory.activity.retried", logrus.Fields{
		"activity_id": entry.ID,
		"product_id":  entry.EntityID,
		"actor_id":    admin.ID,
	})
	return entry, nil
}

func (s *ActivityService) retryCreation(ctx context.Context, admin actor.Actor, entry *activity.Entry, rules product.Rules) error {
	payload, err := product.UnmarshalPayload(entry.NewValue)
	if err != nil {
		return serrors.Validation("ACTIVITY_PAYLOAD_INVALID", "stored creation payload is invalid", nil).WithCause(err)
	}
	created, err := s.gateway.insertDraft(ctx, admin, payload, rules)
	if err != nil {
		return err
	}
	entry.EntityID = created.ID
	entry.NewValue = "New product added by " + admin.DisplayName()
	return nil
}

func (s *ActivityService) retryField(ctx context.Context, admin actor.Actor, entry *activity.Entry, rules product.Rules) error {
	field, ok := product.ParseField(entry.FieldName)
	if !ok {
		return serrors.Validation("ACTIVITY_FIELD_INVALID", "entry does not target a mutable field",
			map[string]string{"field_name": entry.FieldName})
	}
	if errs := rules.Validate(map[string]any{string(field): entry.NewValue}); len(errs) > 0 {
		return validationError(errs)
	}
	current, err := s.gateway.products.GetForUpdate(ctx, entry.EntityID)
	if err != nil {
		return mapStoreError(err)
	}
	next, ok := product.Canonical(field, entry.NewValue)
	if !ok {
		return serrors.Validation("ACTIVITY_VALUE_INVALID", "stored value is invalid",
			map[string]string{string(field): entry.NewValue})
	}
	entry.OldValue = current.Value(field)
	if entry.OldValue == next {
		return nil
	}
	change := product.Changes{{Field: field, Old: entry.OldValue, New: next}}
	_, err = s.gateway.products.Update(ctx, current.ID, change, admin.ID)
	return err
}
