package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/stockledger/stockledger/modules/inventory/domain/changerequest"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/modules/inventory/services"
	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/httpapi"
	"github.com/stockledger/stockledger/pkg/middleware"
)

var testAuth = middleware.AuthOptions{Secret: "test-secret", Issuer: "stockledger-test"}

type stubProducts struct {
	product.Repository
	items map[int64]*product.Product
}

func (s *stubProducts) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := s.items[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (s *stubProducts) ListWithStatus(_ context.Context, params *product.FindParams) ([]*product.WithStatus, error) {
	var out []*product.WithStatus
	for _, p := range s.items {
		if p.IsActive() {
			out = append(out, &product.WithStatus{Product: *p})
		}
	}
	return out, nil
}

func (s *stubProducts) Count(ctx context.Context, params *product.FindParams) (int64, error) {
	items, _ := s.ListWithStatus(ctx, params)
	return int64(len(items)), nil
}

type stubRequests struct {
	changerequest.Repository
	items map[int64]*changerequest.PendingRequest
}

func (s *stubRequests) GetByID(_ context.Context, id int64) (*changerequest.PendingRequest, error) {
	r, ok := s.items[id]
	if !ok {
		return nil, changerequest.ErrNotFound
	}
	return r, nil
}

type stubSettings map[string]string

func (s stubSettings) GetMany(_ context.Context, keys []string) (map[string]string, error) {
	return s, nil
}

func (s stubSettings) Set(_ context.Context, key, value string) error {
	s[key] = value
	return nil
}

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	app := application.New(&application.ApplicationOptions{Logger: log})

	products := &stubProducts{items: map[int64]*product.Product{
		42: {ID: 42, Name: "Widget", Quantity: 10, UnitPrice: decimal.RequireFromString("9.99"), Status: product.StatusActive},
		43: {ID: 43, Name: "Old", Quantity: 1, UnitPrice: decimal.NewFromInt(2), Status: product.StatusInactive},
	}}
	requests := &stubRequests{items: map[int64]*changerequest.PendingRequest{
		7: changerequest.NewFieldUpdate(42, product.FieldChange{Field: product.FieldName, Old: "Widget", New: "Gadget"}, 5),
	}}
	requests.items[7].ID = 7

	settings := services.NewSettingsService(stubSettings{"min_product_qty": "3"}, services.Settings{
		MinProductQty:   1,
		MinProductPrice: "1.00",
		DefaultPageSize: 25,
	})
	audit := services.NewAuditTrail(nil, time.Minute)
	gateway := services.NewProductService(products, requests, audit, settings, app.EventPublisher(), 3)
	app.RegisterServices(
		settings,
		gateway,
		services.NewApprovalService(gateway, settings),
		services.NewQueryService(products, requests, nil, settings, 100),
		services.NewActivityService(gateway, nil, settings),
		services.NewFormSchemaService(nil, nil, nil, app.EventPublisher(), settings, 100),
	)
	app.RegisterControllers(
		NewProductController(app, testAuth),
		NewApprovalController(app, testAuth),
		NewActivityController(app, testAuth),
		NewSettingsController(app, testAuth),
		NewFormController(app, testAuth),
	)

	r := mux.NewRouter()
	for _, c := range app.Controllers() {
		c.Register(r)
	}
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string, a *actor.Actor) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if a != nil {
		token, err := actor.SignToken(testAuth.Secret, testAuth.Issuer, *a, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httpapi.ErrorEnvelope {
	t.Helper()
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

var (
	adminActor  = actor.New(1, actor.RoleAdmin)
	editorActor = actor.New(5, actor.RoleEditor)
	otherEditor = actor.New(6, actor.RoleEditor)
)

func TestRoutes_RequireToken(t *testing.T) {
	r := newRouter(t)
	for _, path := range []string{"/api/products", "/api/activity", "/api/settings", "/api/forms/product-form"} {
		rec := do(t, r, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.Equal(t, "UNAUTHENTICATED", decodeEnvelope(t, rec).Code)
	}
}

func TestRoutes_AdminOnly(t *testing.T) {
	r := newRouter(t)
	cases := []struct{ method, path, body string }{
		{http.MethodDelete, "/api/products/42", ""},
		{http.MethodPost, "/api/products/bulk-delete", `{"ids":[42]}`},
		{http.MethodGet, "/api/products/approvals/count", ""},
		{http.MethodPost, "/api/products/approvals/decision", `{"requestId":7,"decision":"approved"}`},
		{http.MethodPost, "/api/activity/3/retry", ""},
		{http.MethodPut, "/api/settings", `{"key":"min_product_qty","value":"2"}`},
		{http.MethodPost, "/api/forms/save", `{"entities":[]}`},
	}
	for _, tc := range cases {
		rec := do(t, r, tc.method, tc.path, tc.body, &editorActor)
		require.Equal(t, http.StatusForbidden, rec.Code, tc.path)
	}
}

func TestProductController_Get(t *testing.T) {
	r := newRouter(t)

	rec := do(t, r, http.MethodGet, "/api/products/42", "", &editorActor)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Widget", body["name"])
	require.Equal(t, "9.99", body["unit_price"])

	rec = do(t, r, http.MethodGet, "/api/products/43", "", &editorActor)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "PRODUCT_NOT_FOUND", decodeEnvelope(t, rec).Code)

	rec = do(t, r, http.MethodGet, "/api/products/43", "", &adminActor)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/products/99", "", &adminActor)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductController_List(t *testing.T) {
	r := newRouter(t)
	rec := do(t, r, http.MethodGet, "/api/products?page=0&limit=500", "", &editorActor)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []map[string]any `json:"items"`
		Total int64            `json:"total"`
		Page  int              `json:"page"`
		Limit int              `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(1), body.Total)
	require.Equal(t, 1, body.Page)
	require.Equal(t, 100, body.Limit)
	require.Len(t, body.Items, 1)
	require.Nil(t, body.Items[0]["latest_status"])
}

func TestProductController_InvalidBody(t *testing.T) {
	r := newRouter(t)

	rec := do(t, r, http.MethodPatch, "/api/products/42", "{not json", &editorActor)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_JSON", decodeEnvelope(t, rec).Code)

	rec = do(t, r, http.MethodPost, "/api/products/bulk-delete", `{"ids":[]}`, &adminActor)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, "PRODUCT_IDS_REQUIRED", env.Code)
	require.Contains(t, env.Fields, "ids")
}

func TestApprovalController_Decide_Validation(t *testing.T) {
	r := newRouter(t)

	rec := do(t, r, http.MethodPost, "/api/products/approvals/decision", `{"requestId":7,"decision":"maybe"}`, &adminActor)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, decodeEnvelope(t, rec).Fields, "decision")

	rec = do(t, r, http.MethodPost, "/api/products/approvals/decision", `{"requestId":7,"decision":"rejected","reason":"  "}`, &adminActor)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, "REJECTION_REASON_REQUIRED", env.Code)
	require.Equal(t, "required", env.Fields["reason"])
	require.NotEmpty(t, env.Meta["request_id"])
}

func TestApprovalController_Detail(t *testing.T) {
	r := newRouter(t)

	rec := do(t, r, http.MethodGet, "/api/products/approvals/42/7", "", &editorActor)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Request map[string]any `json:"request"`
		Product map[string]any `json:"product"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "name", body.Request["field_name"])
	require.Equal(t, "Gadget", body.Request["new_value"])
	require.Equal(t, "pending", body.Request["status"])
	require.Equal(t, "Widget", body.Product["name"])

	rec = do(t, r, http.MethodGet, "/api/products/approvals/42/7", "", &otherEditor)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "REQUEST_NOT_FOUND", decodeEnvelope(t, rec).Code)

	rec = do(t, r, http.MethodGet, "/api/products/approvals/43/7", "", &adminActor)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsController(t *testing.T) {
	r := newRouter(t)

	rec := do(t, r, http.MethodGet, "/api/settings", "", &editorActor)
	require.Equal(t, http.StatusOK, rec.Code)
	var got services.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, int64(3), got.MinProductQty)
	require.Equal(t, "1.00", got.MinProductPrice)
	require.Equal(t, 25, got.DefaultPageSize)

	rec = do(t, r, http.MethodPut, "/api/settings", `{"key":"min_product_price","value":"2.5"}`, &adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "2.50", got.MinProductPrice)

	rec = do(t, r, http.MethodPut, "/api/settings", `{"key":"colour","value":"red"}`, &adminActor)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
