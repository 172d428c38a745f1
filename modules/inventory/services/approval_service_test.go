package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockledger/stockledger/modules/inventory/domain/activity"
	"github.com/stockledger/stockledger/modules/inventory/domain/changerequest"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/pkg/serrors"
)

func (f *fixture) resolve(t *testing.T, id int64, decision, reason string) *changerequest.PendingRequest {
	t.Helper()
	req, err := f.approvals.Resolve(context.Background(), ResolveParams{RequestID: id, Decision: decision, Admin: admin, Reason: reason})
	require.NoError(t, err)
	return req
}

func (f *fixture) mirrorOf(t *testing.T, requestID int64) activity.Entry {
	t.Helper()
	mirrors := f.db.entriesWhere(func(e activity.Entry) bool { return e.RequestID != nil && *e.RequestID == requestID })
	require.Len(t, mirrors, 1)
	return mirrors[0]
}

func TestResolve_ApproveAppliesChange(t *testing.T) {
	f := newFixture(t)
	f.submit(t, editor, 42, map[string]any{"quantity": 15})
	id := f.submit(t, editor, 42, map[string]any{"quantity": 20}).RequestIDs[0]

	req := f.resolve(t, id, "approved", "")
	require.Equal(t, changerequest.StatusApproved, req.Status)
	require.Equal(t, int64(20), f.db.product(42).Quantity)

	stored, err := memRequests{f.db}.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusApproved, stored.Status)
	require.Equal(t, int64(1), *stored.AdminID)

	mirror := f.mirrorOf(t, id)
	require.Equal(t, activity.StatusApproved, mirror.Status)
	require.Equal(t, int64(1), *mirror.AdminID)
	require.Len(t, f.db.entriesWhere(allEntries), 1)
}

func TestResolve_ApprovalAppliesExactlyOnce(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, editor, 42, map[string]any{"quantity": 20}).RequestIDs[0]
	f.resolve(t, id, "approve", "")
	require.Equal(t, int64(20), f.db.product(42).Quantity)

	f.submit(t, admin, 42, map[string]any{"quantity": 7})

	_, err := f.approvals.Resolve(context.Background(), ResolveParams{RequestID: id, Decision: "approved", Admin: admin})
	require.ErrorIs(t, err, ErrAlreadyResolved)
	require.Equal(t, int64(7), f.db.product(42).Quantity)

	_, err = f.approvals.Resolve(context.Background(), ResolveParams{RequestID: id, Decision: "rejected", Admin: admin, Reason: "late"})
	require.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestResolve_RejectKeepsProduct(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, editor, 42, map[string]any{"unit_price": "4.00"}).RequestIDs[0]

	req := f.resolve(t, id, "rejected", "  Price too low for category ")
	require.Equal(t, changerequest.StatusRejected, req.Status)
	require.Equal(t, "Price too low for category", *req.RejectionReason)
	require.Equal(t, "9.99", f.db.product(42).UnitPrice.StringFixed(2))

	mirror := f.mirrorOf(t, id)
	require.Equal(t, activity.StatusRejected, mirror.Status)
	require.Equal(t, "Price too low for category", *mirror.RejectionReason)
	require.Equal(t, int64(1), *mirror.AdminID)
}

func TestResolve_RejectionRequiresReason(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, editor, 42, map[string]any{"name": "Gadget"}).RequestIDs[0]

	_, err := f.approvals.Resolve(context.Background(), ResolveParams{RequestID: id, Decision: "rejected", Admin: admin, Reason: "   "})
	var be *serrors.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, serrors.KindValidation, be.Kind)
	require.Equal(t, "required", be.Fields["reason"])

	require.Len(t, f.db.requestsWhere(pendingFor(42, "name")), 1)
	require.Equal(t, activity.StatusPending, f.mirrorOf(t, id).Status)
}

func TestResolve_Guards(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, editor, 42, map[string]any{"name": "Gadget"}).RequestIDs[0]

	_, err := f.approvals.Resolve(context.Background(), ResolveParams{RequestID: id, Decision: "approved", Admin: editor})
	require.ErrorIs(t, err, ErrAdminRequired)

	_, err = f.approvals.Resolve(context.Background(), ResolveParams{RequestID: id, Decision: "maybe", Admin: admin})
	require.True(t, serrors.IsKind(err, serrors.KindValidation))

	_, err = f.approvals.Resolve(context.Background(), ResolveParams{RequestID: 999, Decision: "approved", Admin: admin})
	require.ErrorIs(t, err, ErrRequestNotFound)

	require.Equal(t, "Widget", f.db.product(42).Name)
}

func TestResolve_SupersededRequestIsNotFound(t *testing.T) {
	f := newFixture(t)
	first := f.submit(t, editor, 42, map[string]any{"name": "Gadget"}).RequestIDs[0]
	f.submit(t, otherEditor, 42, map[string]any{"name": "Gizmo"})

	_, err := f.approvals.Resolve(context.Background(), ResolveParams{RequestID: first, Decision: "approved", Admin: admin})
	require.ErrorIs(t, err, ErrRequestNotFound)
	require.Equal(t, "Widget", f.db.product(42).Name)
}

func TestResolve_ApproveCreation(t *testing.T) {
	f := newFixture(t)
	var resolved []*ChangeResolved
	f.bus.Subscribe(func(e *ChangeResolved) { resolved = append(resolved, e) })

	id := f.submit(t, editor, product.NewEntity, map[string]any{"name": "Lamp", "quantity": 5, "unit_price": 9.99}).RequestIDs[0]
	req := f.resolve(t, id, "approved", "")
	require.NotZero(t, req.EntityID)

	created := f.db.product(req.EntityID)
	require.Equal(t, "Lamp", created.Name)
	require.Equal(t, int64(5), created.Quantity)
	require.Equal(t, "9.99", created.UnitPrice.StringFixed(2))

	mirror := f.mirrorOf(t, id)
	require.Equal(t, activity.StatusApproved, mirror.Status)
	require.Equal(t, req.EntityID, mirror.EntityID)

	creation := f.db.entriesWhere(func(e activity.Entry) bool { return e.FieldName == activity.FieldCreation })
	require.Len(t, creation, 1)
	require.Equal(t, req.EntityID, creation[0].EntityID)

	require.Len(t, resolved, 1)
	require.Equal(t, id, resolved[0].Request.ID)
}

func TestResolve_MissingMirrorIsWritten(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, editor, 42, map[string]any{"name": "Gadget"}).RequestIDs[0]
	_, err := memActivity{f.db}.DeletePending(context.Background(), 42, "name")
	require.NoError(t, err)

	f.resolve(t, id, "approved", "")
	mirror := f.mirrorOf(t, id)
	require.Equal(t, activity.StatusApproved, mirror.Status)
	require.Equal(t, "Gadget", mirror.NewValue)
}

func TestPendingCount(t *testing.T) {
	f := newFixture(t)
	f.submit(t, editor, 42, map[string]any{"name": "Gadget", "quantity": 11})

	_, err := f.approvals.PendingCount(context.Background(), editor)
	require.ErrorIs(t, err, ErrAdminRequired)

	n, err := f.approvals.PendingCount(context.Background(), admin)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestDetail(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, editor, 42, map[string]any{"name": "Gadget"}).RequestIDs[0]

	d, err := f.approvals.Detail(context.Background(), editor, 42, id)
	require.NoError(t, err)
	require.Equal(t, id, d.Request.ID)
	require.Equal(t, "Widget", d.Product.Name)

	_, err = f.approvals.Detail(context.Background(), otherEditor, 42, id)
	require.ErrorIs(t, err, ErrRequestNotFound)

	_, err = f.approvals.Detail(context.Background(), admin, 43, id)
	require.ErrorIs(t, err, ErrRequestNotFound)

	createID := f.submit(t, editor, product.NewEntity, map[string]any{"name": "Lamp"}).RequestIDs[0]
	d, err = f.approvals.Detail(context.Background(), admin, product.NewEntity, createID)
	require.NoError(t, err)
	require.Nil(t, d.Product)
}

func TestResolve_CreationFailureLeavesRequestPending(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, editor, product.NewEntity, map[string]any{"name": "Lamp", "quantity": 5}).RequestIDs[0]
	before := len(f.db.products)
	f.db.failProductCreate = errors.New("insert failed")

	_, err := f.approvals.Resolve(context.Background(), ResolveParams{RequestID: id, Decision: "approved", Admin: admin})
	require.Error(t, err)
	require.Len(t, f.db.products, before)

	stored, err := memRequests{f.db}.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.True(t, stored.IsPending())
	require.Equal(t, product.NewEntity, stored.EntityID)

	mirror := f.mirrorOf(t, id)
	require.Equal(t, activity.StatusPending, mirror.Status)
	require.Equal(t, product.NewEntity, mirror.EntityID)
	require.Nil(t, mirror.AdminID)
	require.Empty(t, f.db.entriesWhere(func(e activity.Entry) bool { return e.FieldName == activity.FieldCreation }))
}

func TestResolve_UpdateFailureLeavesProductAndRequest(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, editor, 42, map[string]any{"quantity": 20}).RequestIDs[0]
	f.db.failProductUpdate = errors.New("connection reset")

	_, err := f.approvals.Resolve(context.Background(), ResolveParams{RequestID: id, Decision: "approved", Admin: admin})
	require.True(t, serrors.IsKind(err, serrors.KindPersistence))
	require.Equal(t, int64(10), f.db.product(42).Quantity)
	require.Len(t, f.db.requestsWhere(pendingFor(42, "quantity")), 1)
	require.Equal(t, activity.StatusPending, f.mirrorOf(t, id).Status)

	f.db.failProductUpdate = nil
	f.resolve(t, id, "approved", "")
	require.Equal(t, int64(20), f.db.product(42).Quantity)
}

func TestResolve_ApproveOnDeactivatedProduct(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, editor, 42, map[string]any{"name": "Gadget"}).RequestIDs[0]
	_, err := f.products.Delete(context.Background(), admin, 42)
	require.NoError(t, err)

	_, err = f.approvals.Resolve(context.Background(), ResolveParams{RequestID: id, Decision: "approved", Admin: admin})
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Equal(t, "Widget", f.db.product(42).Name)
	require.Len(t, f.db.requestsWhere(pendingFor(42, "name")), 1)

	f.resolve(t, id, "rejected", "product retired")
	require.Equal(t, activity.StatusRejected, f.mirrorOf(t, id).Status)
}
