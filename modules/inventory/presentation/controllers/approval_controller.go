package controllers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/stockledger/stockledger/modules/inventory/presentation/dtos"
	"github.com/stockledger/stockledger/modules/inventory/services"
	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/middleware"
)

type ApprovalController struct {
	app       application.Application
	approvals *services.ApprovalService
	queries   *services.QueryService
	auth      middleware.AuthOptions
	basePath  string
}

func NewApprovalController(app application.Application, auth middleware.AuthOptions) application.Controller {
	return &ApprovalController{
		app:       app,
		approvals: app.Service(services.ApprovalService{}).(*services.ApprovalService),
		queries:   app.Service(services.QueryService{}).(*services.QueryService),
		auth:      auth,
		basePath:  "/api/products/approvals",
	}
}

func (c *ApprovalController) Key() string {
	return c.basePath
}

func (c *ApprovalController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(authenticated(c.auth)...)
	router.HandleFunc("/list", c.List).Methods(http.MethodGet)
	router.HandleFunc("/{productId:[0-9]+}/{requestId:[0-9]+}", c.Detail).Methods(http.MethodGet)

	adminRouter := r.PathPrefix(c.basePath).Subrouter()
	adminRouter.Use(adminOnly(c.auth)...)
	adminRouter.HandleFunc("/count", c.Count).Methods(http.MethodGet)
	adminRouter.HandleFunc("/decision", c.Decide).Methods(http.MethodPost)
}

func (c *ApprovalController) List(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := c.queries.ListRequests(r.Context(), a, services.RequestQuery{
		Status: strings.TrimSpace(q.Get("status")),
		Search: strings.TrimSpace(q.Get("search")),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"items": dtos.MapItems(page.Items, dtos.RequestToDTO),
		"total": page.Total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

func (c *ApprovalController) Count(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	n, err := c.approvals.PendingCount(r.Context(), a)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"count": n})
}

func (c *ApprovalController) Detail(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "requestId")
	if !ok {
		return
	}
	d, err := c.approvals.Detail(r.Context(), a, productID, requestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dtos.RequestDetailToDTO(d))
}

func (c *ApprovalController) Decide(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	var dto dtos.DecisionDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		writeValidation(w, r, "DECISION_INVALID", errs)
		return
	}
	req, err := c.approvals.Resolve(r.Context(), services.ResolveParams{
		RequestID: dto.RequestID,
		Decision:  dto.Decision,
		Admin:     a,
		Reason:    dto.Reason,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dtos.RequestToDTO(req))
}
