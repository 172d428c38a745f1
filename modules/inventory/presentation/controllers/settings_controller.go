package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stockledger/stockledger/modules/inventory/presentation/dtos"
	"github.com/stockledger/stockledger/modules/inventory/services"
	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/middleware"
)

type SettingsController struct {
	app      application.Application
	settings *services.SettingsService
	auth     middleware.AuthOptions
	basePath string
}

func NewSettingsController(app application.Application, auth middleware.AuthOptions) application.Controller {
	return &SettingsController{
		app:      app,
		settings: app.Service(services.SettingsService{}).(*services.SettingsService),
		auth:     auth,
		basePath: "/api/settings",
	}
}

func (c *SettingsController) Key() string {
	return c.basePath
}

func (c *SettingsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(authenticated(c.auth)...)
	router.HandleFunc("", c.Get).Methods(http.MethodGet)

	adminRouter := r.PathPrefix(c.basePath).Subrouter()
	adminRouter.Use(adminOnly(c.auth)...)
	adminRouter.HandleFunc("", c.Set).Methods(http.MethodPut)
}

func (c *SettingsController) Get(w http.ResponseWriter, r *http.Request) {
	cur, err := c.settings.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cur)
}

func (c *SettingsController) Set(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	var dto dtos.SettingDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		writeValidation(w, r, "INVALID_SETTING", errs)
		return
	}
	if err := c.settings.Set(r.Context(), a, dto.Key, dto.Value); err != nil {
		writeServiceError(w, r, err)
		return
	}
	cur, err := c.settings.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cur)
}
