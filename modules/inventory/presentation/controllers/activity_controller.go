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

type ActivityController struct {
	app      application.Application
	activity *services.ActivityService
	queries  *services.QueryService
	auth     middleware.AuthOptions
	basePath string
}

func NewActivityController(app application.Application, auth middleware.AuthOptions) application.Controller {
	return &ActivityController{
		app:      app,
		activity: app.Service(services.ActivityService{}).(*services.ActivityService),
		queries:  app.Service(services.QueryService{}).(*services.QueryService),
		auth:     auth,
		basePath: "/api/activity",
	}
}

func (c *ActivityController) Key() string {
	return c.basePath
}

func (c *ActivityController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(authenticated(c.auth)...)
	router.HandleFunc("", c.List).Methods(http.MethodGet)

	adminRouter := r.PathPrefix(c.basePath).Subrouter()
	adminRouter.Use(adminOnly(c.auth)...)
	adminRouter.HandleFunc("/{id:[0-9]+}/retry", c.Retry).Methods(http.MethodPost)
}

func (c *ActivityController) List(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := c.queries.ListActivity(r.Context(), a, services.ActivityQuery{
		ActorID:  queryInt64(r, "actor_id"),
		EntityID: queryInt64(r, "entity_id"),
		Type:     strings.TrimSpace(q.Get("type")),
		Status:   strings.TrimSpace(q.Get("status")),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"items": dtos.MapItems(page.Items, dtos.ActivityToDTO),
		"total": page.Total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

func (c *ActivityController) Retry(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entry, err := c.activity.Retry(r.Context(), a, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dtos.ActivityToDTO(entry))
}
