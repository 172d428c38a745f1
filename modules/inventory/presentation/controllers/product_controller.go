package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/modules/inventory/presentation/dtos"
	"github.com/stockledger/stockledger/modules/inventory/services"
	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/middleware"
)

type ProductController struct {
	app      application.Application
	products *services.ProductService
	queries  *services.QueryService
	auth     middleware.AuthOptions
	basePath string
}

func NewProductController(app application.Application, auth middleware.AuthOptions) application.Controller {
	return &ProductController{
		app:      app,
		products: app.Service(services.ProductService{}).(*services.ProductService),
		queries:  app.Service(services.QueryService{}).(*services.QueryService),
		auth:     auth,
		basePath: "/api/products",
	}
}

func (c *ProductController) Key() string {
	return c.basePath
}

func (c *ProductController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(authenticated(c.auth)...)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/{id:[0-9]+}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id:[0-9]+}", c.Update).Methods(http.MethodPatch)

	adminRouter := r.PathPrefix(c.basePath).Subrouter()
	adminRouter.Use(adminOnly(c.auth)...)
	adminRouter.HandleFunc("/bulk-delete", c.BulkDelete).Methods(http.MethodPost)
	adminRouter.HandleFunc("/{id:[0-9]+}", c.Delete).Methods(http.MethodDelete)
}

func (c *ProductController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := c.queries.ListProducts(r.Context(), services.ProductQuery{
		Search: strings.TrimSpace(q.Get("search")),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"items": dtos.MapItems(page.Items, dtos.ProductListItemToDTO),
		"total": page.Total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

func (c *ProductController) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := c.products.Get(r.Context(), a, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dtos.ProductToDTO(p))
}

func (c *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	c.submit(w, r, product.NewEntity)
}

func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if id == product.NewEntity {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_ID", "invalid id")
		return
	}
	c.submit(w, r, id)
}

// submit routes an edit form: admins write through, editors queue requests.
func (c *ProductController) submit(w http.ResponseWriter, r *http.Request, id int64) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}
	res, err := c.products.SubmitChange(r.Context(), services.SubmitParams{ProductID: id, Fields: fields, Actor: a})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	switch {
	case res.Outcome == services.OutcomeSubmitted:
		status = http.StatusAccepted
	case id == product.NewEntity && res.Outcome == services.OutcomeApplied:
		status = http.StatusCreated
	}
	writeJSON(w, r, status, dtos.SubmitResultToDTO(res))
}

func (c *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := c.products.Delete(r.Context(), a, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dtos.SubmitResultToDTO(res))
}

func (c *ProductController) BulkDelete(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	var dto dtos.BulkDeleteDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		writeValidation(w, r, "PRODUCT_IDS_REQUIRED", errs)
		return
	}
	ids, err := c.products.BulkDelete(r.Context(), a, dto.IDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"deactivated": ids})
}

// decodeFields keeps numbers as json.Number so prices keep their scale.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return nil, false
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, true
}
