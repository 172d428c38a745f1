package services

import (
	"context"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/stockledger/stockledger/modules/inventory/domain/activity"
	"github.com/stockledger/stockledger/modules/inventory/domain/changerequest"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/eventbus"
	"github.com/stockledger/stockledger/pkg/serrors"
)

type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeSubmitted Outcome = "submitted"
	OutcomeNoop      Outcome = "noop"
)

type SubmitParams struct {
	// ProductID is product.NewEntity for a creation.
	ProductID int64
	Fields    map[string]any
	Actor     actor.Actor
}

type SubmitResult struct {
	Outcome    Outcome
	Product    *product.Product
	RequestIDs []int64
}

type ProductService struct {
	products    product.Repository
	requests    changerequest.Repository
	audit       *AuditTrail
	config      ConfigProvider
	publisher   eventbus.EventBus
	maxAttempts int
}

func NewProductService(
	products product.Repository,
	requests changerequest.Repository,
	audit *AuditTrail,
	config ConfigProvider,
	publisher eventbus.EventBus,
	maxAttempts int,
) *ProductService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ProductService{
		products:    products,
		requests:    requests,
		audit:       audit,
		config:      config,
		publisher:   publisher,
		maxAttempts: maxAttempts,
	}
}

func (s *ProductService) Get(ctx context.Context, a actor.Actor, id int64) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !p.IsActive() && !a.IsAdmin() {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// SubmitChange applies the proposal directly for admins and queues it as
// pending requests for editors. status is never accepted here.
func (s *ProductService) SubmitChange(ctx context.Context, params SubmitParams) (*SubmitResult, error) {
	fields := make(map[string]any, len(params.Fields))
	for k, v := range params.Fields {
		if k == string(product.FieldStatus) {
			continue
		}
		fields[k] = v
	}

	rules, err := s.config.Rules(ctx)
	if err != nil {
		return nil, err
	}

	var res *SubmitResult
	a := params.Actor
	switch {
	case a.IsAdmin() && params.ProductID == product.NewEntity:
		res, err = s.createDirect(ctx, a, product.NewPayload(fields), rules, fields)
	case a.IsAdmin():
		res, err = s.applyDirect(ctx, a, params.ProductID, fields, rules)
	case params.ProductID == product.NewEntity:
		res, err = s.withRetry(ctx, func(ctx context.Context) (*SubmitResult, error) {
			return s.proposeCreation(ctx, a, fields, rules)
		})
	default:
		res, err = s.withRetry(ctx, func(ctx context.Context) (*SubmitResult, error) {
			return s.proposeChanges(ctx, a, params.ProductID, fields, rules)
		})
	}
	if err != nil {
		return nil, err
	}
	recordSubmission(a.IsAdmin(), res.Outcome)
	return res, nil
}

// Delete deactivates one product through the privileged path.
func (s *ProductService) Delete(ctx context.Context, a actor.Actor, id int64) (*SubmitResult, error) {
	if !a.IsAdmin() {
		return nil, ErrAdminRequired
	}
	rules, err := s.config.Rules(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.applyDirect(ctx, a, id, map[string]any{string(product.FieldStatus): string(product.StatusInactive)}, rules)
	if err != nil {
		return nil, err
	}
	recordSubmission(true, res.Outcome)
	return res, nil
}

// BulkDelete deactivates every active product in ids and returns the ids
// it changed.
func (s *ProductService) BulkDelete(ctx context.Context, a actor.Actor, ids []int64) ([]int64, error) {
	if !a.IsAdmin() {
		return nil, ErrAdminRequired
	}
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 && !slices.Contains(unique, id) {
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, serrors.Validation("PRODUCT_IDS_REQUIRED", "at least one product id is required",
			map[string]string{"ids": "required"})
	}

	var changed []int64
	err := inTxFn(ctx, func(txCtx context.Context) error {
		var err error
		changed, err = s.products.Deactivate(txCtx, unique, a.ID)
		if err != nil {
			return err
		}
		for _, id := range changed {
			s.bestEffortAudit(txCtx, "bulk_delete", func(ctx context.Context) error {
				return s.audit.RecordChanges(ctx, a, id, product.Changes{{
					Field: product.FieldStatus,
					Old:   string(product.StatusActive),
					New:   string(product.StatusInactive),
				}}, activity.StatusSuccess)
			})
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	logWithFields(ctx, logrus.InfoLevel, "inventory.products.bulk_delete", logrus.Fields{
		"actor_id":  a.ID,
		"requested": len(unique),
		"changed":   len(changed),
	})
	s.publish(&ProductsDeactivated{Actor: a, IDs: changed})
	return changed, nil
}

func (s *ProductService) applyDirect(ctx context.Context, a actor.Actor, id int64, fields map[string]any, rules product.Rules) (*SubmitResult, error) {
	var (
		res      *SubmitResult
		intended product.Changes
	)
	err := inTxFn(ctx, func(txCtx context.Context) error {
		current, err := s.products.GetForUpdate(txCtx, id)
		if err != nil {
			return mapStoreError(err)
		}
		if errs := rules.Validate(fields); len(errs) > 0 {
			return validationError(errs)
		}
		changes := product.ComputeDelta(current.Snapshot(), fields)
		if changes.IsEmpty() {
			res = &SubmitResult{Outcome: OutcomeNoop, Product: current}
			return nil
		}

		intended = changes
		updated, err := s.applyChanges(txCtx, a, current, changes)
		if err != nil {
			return err
		}
		res = &SubmitResult{Outcome: OutcomeApplied, Product: updated}
		return nil
	})
	if err != nil {
		if intended.IsEmpty() {
			return nil, err
		}
		if kind := serrors.KindOf(err); kind != serrors.KindPersistence && kind != serrors.KindInternal {
			return nil, err
		}
		s.recordFailure(ctx, a, func(ctx context.Context) error {
			return s.audit.RecordChanges(ctx, a, id, intended, activity.StatusFailed)
		})
		return nil, serrors.Persistence("PRODUCT_UPDATE_FAILED", "failed to apply product changes", err)
	}

	if res.Outcome == OutcomeApplied {
		logWithFields(ctx, logrus.InfoLevel, "inventory.products.applied", logrus.Fields{
			"actor_id":   a.ID,
			"product_id": id,
			"fields":     intended.Fields(),
		})
		s.publish(&ChangeApplied{Actor: a, Product: res.Product, Changes: intended})
	}
	return res, nil
}

// applyChanges writes changes to the product row and records them. Audit
// failures are logged and do not fail the update.
func (s *ProductService) applyChanges(ctx context.Context, a actor.Actor, current *product.Product, changes product.Changes) (*product.Product, error) {
	if _, err := current.Apply(changes); err != nil {
		return nil, serrors.Validation("PRODUCT_INVALID_VALUE", err.Error(), nil).WithCause(err)
	}
	updated, err := s.products.Update(ctx, current.ID, changes, a.ID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.bestEffortAudit(ctx, "apply", func(ctx context.Context) error {
		return s.audit.RecordChanges(ctx, a, current.ID, changes, activity.StatusSuccess)
	})
	return updated, nil
}

func (s *ProductService) createDirect(ctx context.Context, a actor.Actor, payload product.Payload, rules product.Rules, fields map[string]any) (*SubmitResult, error) {
	if errs := rules.Validate(fields); len(errs) > 0 {
		return nil, validationError(errs)
	}
	var created *product.Product
	err := inTxFn(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.createProduct(txCtx, a, payload, rules)
		return err
	})
	if err != nil {
		s.recordFailure(ctx, a, func(ctx context.Context) error {
			return s.audit.RecordFailedCreation(ctx, a, payload)
		})
		return nil, serrors.Persistence("PRODUCT_CREATE_FAILED", "failed to create product", err)
	}

	logWithFields(ctx, logrus.InfoLevel, "inventory.products.created", logrus.Fields{
		"actor_id":   a.ID,
		"product_id": created.ID,
	})
	s.publish(&ChangeApplied{Actor: a, Product: created, Created: true})
	return &SubmitResult{Outcome: OutcomeApplied, Product: created}, nil
}

// createProduct inserts a product from payload with missing fields taken
// from the configured minimums, and records the creation.
func (s *ProductService) createProduct(ctx context.Context, a actor.Actor, payload product.Payload, rules product.Rules) (*product.Product, error) {
	created, err := s.insertDraft(ctx, a, payload, rules)
	if err != nil {
		return nil, err
	}
	s.bestEffortAudit(ctx, "create", func(ctx context.Context) error {
		return s.audit.RecordCreation(ctx, a, created.ID)
	})
	return created, nil
}

func (s *ProductService) insertDraft(ctx context.Context, a actor.Actor, payload product.Payload, rules product.Rules) (*product.Product, error) {
	draft, err := product.NewDraft(payload, rules)
	if err != nil {
		return nil, serrors.Validation("PRODUCT_INVALID_VALUE", err.Error(), nil).WithCause(err)
	}
	created, err := s.products.Create(ctx, draft, a.ID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return created, nil
}

func (s *ProductService) proposeChanges(ctx context.Context, a actor.Actor, id int64, fields map[string]any, rules product.Rules) (*SubmitResult, error) {
	var res *SubmitResult
	err := inTxFn(ctx, func(txCtx context.Context) error {
		current, err := s.products.GetForUpdate(txCtx, id)
		if err != nil {
			return mapStoreError(err)
		}
		if !current.IsActive() {
			return ErrProductNotFound
		}
		if errs := rules.Validate(fields); len(errs) > 0 {
			return validationError(errs)
		}
		changes := product.ComputeDelta(current.Snapshot(), fields)
		if changes.IsEmpty() {
			res = &SubmitResult{Outcome: OutcomeNoop, Product: current}
			return nil
		}

		ids := make([]int64, 0, len(changes))
		for _, c := range changes {
			if _, err := s.audit.DropPending(txCtx, id, string(c.Field)); err != nil {
				return err
			}
			superseded, err := s.requests.DeletePending(txCtx, id, string(c.Field))
			if err != nil {
				return err
			}
			if len(superseded) > 0 {
				logWithFields(txCtx, logrus.DebugLevel, "inventory.requests.superseded", logrus.Fields{
					"product_id":  id,
					"field":       c.Field,
					"request_ids": superseded,
				})
			}
			req, err := s.queue(txCtx, changerequest.NewFieldUpdate(id, c, a.ID))
			if err != nil {
				return err
			}
			ids = append(ids, req.ID)
		}
		res = &SubmitResult{Outcome: OutcomeSubmitted, RequestIDs: ids}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Outcome == OutcomeSubmitted {
		s.publish(&ChangeSubmitted{Actor: a, ProductID: id, RequestIDs: res.RequestIDs})
	}
	return res, nil
}

func (s *ProductService) proposeCreation(ctx context.Context, a actor.Actor, fields map[string]any, rules product.Rules) (*SubmitResult, error) {
	if errs := rules.Validate(fields); len(errs) > 0 {
		return nil, validationError(errs)
	}
	var req *changerequest.PendingRequest
	err := inTxFn(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.queue(txCtx, changerequest.NewEntityCreate(product.NewPayload(fields), a.ID))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(&ChangeSubmitted{Actor: a, ProductID: product.NewEntity, RequestIDs: []int64{req.ID}})
	return &SubmitResult{Outcome: OutcomeSubmitted, RequestIDs: []int64{req.ID}}, nil
}

// queue stores r together with its pending mirror.
func (s *ProductService) queue(ctx context.Context, r *changerequest.PendingRequest) (*changerequest.PendingRequest, error) {
	if err := s.requests.Create(ctx, r); err != nil {
		return nil, err
	}
	if _, err := s.audit.Mirror(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// withRetry repeats fn while it collides with a concurrent proposal on the
// pending indexes.
func (s *ProductService) withRetry(ctx context.Context, fn func(context.Context) (*SubmitResult, error)) (*SubmitResult, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		if !isUniqueViolation(err, "") {
			return nil, mapStoreError(err)
		}
		lastErr = err
		recordWriteConflict("pending_index")
		if attempt < s.maxAttempts {
			inventorySubmitRetries.Inc()
		}
	}
	logWithFields(ctx, logrus.WarnLevel, "inventory.requests.conflict", logrus.Fields{
		"attempts": s.maxAttempts,
		"error":    lastErr,
	})
	return nil, ErrChangePending.WithCause(lastErr)
}

// bestEffortAudit runs fn in a savepoint so a failing audit write leaves
// the surrounding transaction usable.
func (s *ProductService) bestEffortAudit(ctx context.Context, op string, fn func(context.Context) error) {
	if err := inSavepointFn(ctx, fn); err != nil {
		recordAuditFailure(op)
		logWithFields(ctx, logrus.WarnLevel, "inventory.audit.write_failed", logrus.Fields{
			"op":    op,
			"error": err,
		})
	}
}

// recordFailure writes failed entries in their own transaction after the
// main one rolled back.
func (s *ProductService) recordFailure(ctx context.Context, a actor.Actor, fn func(context.Context) error) {
	if err := inTxFn(ctx, fn); err != nil {
		recordAuditFailure("failure")
		logWithFields(ctx, logrus.ErrorLevel, "inventory.audit.failure_not_recorded", logrus.Fields{
			"actor_id": a.ID,
			"error":    err,
		})
	}
}

func (s *ProductService) publish(event any) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

func validationError(fields map[string]string) error {
	return serrors.Validation("PRODUCT_VALIDATION_FAILED", "validation failed", fields)
}
