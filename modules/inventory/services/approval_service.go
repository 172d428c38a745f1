package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stockledger/stockledger/modules/inventory/domain/changerequest"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/serrors"
)

type ResolveParams struct {
	RequestID int64
	Decision  string
	Admin     actor.Actor
	Reason    string
}

// RequestDetail is a request with the product it targets. Product is nil
// for creation requests that have not been approved.
type RequestDetail struct {
	Request *changerequest.PendingRequest
	Product *product.Product
}

type ApprovalService struct {
	gateway  *ProductService
	products product.Repository
	requests changerequest.Repository
	audit    *AuditTrail
	config   ConfigProvider
}

func NewApprovalService(gateway *ProductService, config ConfigProvider) *ApprovalService {
	return &ApprovalService{
		gateway:  gateway,
		products: gateway.products,
		requests: gateway.requests,
		audit:    gateway.audit,
		config:   config,
	}
}

// Resolve approves or rejects a pending request. Every write happens in one
// transaction; nothing is changed when any of them fails.
func (s *ApprovalService) Resolve(ctx context.Context, params ResolveParams) (*changerequest.PendingRequest, error) {
	if !params.Admin.IsAdmin() {
		return nil, ErrAdminRequired
	}
	decision, ok := changerequest.ParseDecision(params.Decision)
	if !ok {
		return nil, serrors.Validation("INVALID_DECISION", "decision must be approved or rejected",
			map[string]string{"decision": "must be approved or rejected"})
	}
	reason := strings.TrimSpace(params.Reason)
	if decision == changerequest.DecisionReject && reason == "" {
		return nil, serrors.Validation("REJECTION_REASON_REQUIRED", "rejection reason is required",
			map[string]string{"reason": "required"})
	}

	var req *changerequest.PendingRequest
	err := inTxFn(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.requests.GetForUpdate(txCtx, params.RequestID)
		if err != nil {
			return mapStoreError(err)
		}
		if !req.IsPending() {
			return ErrAlreadyResolved
		}

		if decision == changerequest.DecisionApprove {
			if err := s.apply(txCtx, params.Admin, req); err != nil {
				return err
			}
			if err := req.Approve(params.Admin.ID); err != nil {
				return err
			}
		} else if err := req.Reject(params.Admin.ID, reason); err != nil {
			return err
		}

		if err := s.requests.Resolve(txCtx, req); err != nil {
			return err
		}
		_, err = s.audit.ResolveMirror(txCtx, req)
		return err
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	recordDecision(string(req.Change.Kind()), string(req.Status))
	logWithFields(ctx, logrus.InfoLevel, "inventory.requests.resolved", logrus.Fields{
		"request_id": req.ID,
		"product_id": req.EntityID,
		"actor_id":   params.Admin.ID,
		"decision":   req.Status,
	})
	s.gateway.publish(&ChangeResolved{Admin: params.Admin, Request: req})
	return req, nil
}

// apply performs the approved change with the privileged path. The pending
// mirror stands in for the success entry, so field updates are not logged
// again.
func (s *ApprovalService) apply(ctx context.Context, admin actor.Actor, req *changerequest.PendingRequest) error {
	switch c := req.Change.(type) {
	case changerequest.EntityCreate:
		rules, err := s.config.Rules(ctx)
		if err != nil {
			return err
		}
		created, err := s.gateway.createProduct(ctx, admin, c.Payload, rules)
		if err != nil {
			return err
		}
		req.EntityID = created.ID
		return nil
	case changerequest.FieldUpdate:
		current, err := s.products.GetForUpdate(ctx, req.EntityID)
		if err != nil {
			return mapStoreError(err)
		}
		if !current.IsActive() {
			return ErrProductNotFound
		}
		if current.Value(c.Field) == c.New {
			return nil
		}
		change := product.Changes{{Field: c.Field, Old: current.Value(c.Field), New: c.New}}
		if _, err := current.Apply(change); err != nil {
			return serrors.Validation("PRODUCT_INVALID_VALUE", err.Error(), nil).WithCause(err)
		}
		_, err = s.products.Update(ctx, current.ID, change, admin.ID)
		return err
	}
	return serrors.NewError("UNKNOWN_REQUEST_KIND", "unknown request kind", "").WithCause(changerequest.ErrUnknownKind)
}

func (s *ApprovalService) PendingCount(ctx context.Context, a actor.Actor) (int64, error) {
	if !a.IsAdmin() {
		return 0, ErrAdminRequired
	}
	n, err := s.requests.Count(ctx, &changerequest.FindParams{Status: changerequest.StatusPending})
	if err != nil {
		return 0, mapStoreError(err)
	}
	return n, nil
}

// Detail returns a request and the current state of its product. Editors
// only see their own requests.
func (s *ApprovalService) Detail(ctx context.Context, a actor.Actor, productID, requestID int64) (*RequestDetail, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if req.EntityID != productID {
		return nil, ErrRequestNotFound
	}
	if !a.IsAdmin() && req.RequestedBy != a.ID {
		return nil, ErrRequestNotFound
	}

	out := &RequestDetail{Request: req}
	if req.EntityID == product.NewEntity {
		return out, nil
	}
	p, err := s.products.GetByID(ctx, req.EntityID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	out.Product = p
	return out, nil
}
