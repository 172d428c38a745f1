package controllers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/stockledger/stockledger/modules/inventory/domain/fieldschema"
	"github.com/stockledger/stockledger/modules/inventory/presentation/dtos"
	"github.com/stockledger/stockledger/modules/inventory/services"
	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/middleware"
)

// FormController serves the dynamic product form. Only the products table
// has a form today.
type FormController struct {
	app      application.Application
	forms    *services.FormSchemaService
	auth     middleware.AuthOptions
	basePath string
}

func NewFormController(app application.Application, auth middleware.AuthOptions) application.Controller {
	return &FormController{
		app:      app,
		forms:    app.Service(services.FormSchemaService{}).(*services.FormSchemaService),
		auth:     auth,
		basePath: "/api/forms",
	}
}

func (c *FormController) Key() string {
	return c.basePath
}

func (c *FormController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(authenticated(c.auth)...)
	router.HandleFunc("/product-form", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/logs", c.Logs).Methods(http.MethodGet)
	router.HandleFunc("/schema-columns", c.Columns).Methods(http.MethodGet)

	adminRouter := r.PathPrefix(c.basePath).Subrouter()
	adminRouter.Use(adminOnly(c.auth)...)
	adminRouter.HandleFunc("/save", c.Save).Methods(http.MethodPost)
	adminRouter.HandleFunc("/product-form/fields/{dbKey}", c.UpdateField).Methods(http.MethodPatch)
}

func (c *FormController) Get(w http.ResponseWriter, r *http.Request) {
	form, err := c.forms.Get(r.Context(), fieldschema.ProductsTable)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dtos.FormToDTO(form))
}

func (c *FormController) Save(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	var dto dtos.SaveFormDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		writeValidation(w, r, "FORM_VALIDATION_FAILED", errs)
		return
	}
	if dto.TableName != fieldschema.ProductsTable {
		writeValidation(w, r, "FORM_VALIDATION_FAILED", map[string]string{"tableName": "unsupported table"})
		return
	}
	form, err := c.forms.Save(r.Context(), a, dto.TableName, dto.ToEntities())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dtos.FormToDTO(form))
}

func (c *FormController) UpdateField(w http.ResponseWriter, r *http.Request) {
	a, ok := currentActor(w, r)
	if !ok {
		return
	}
	var dto dtos.FieldLogicDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		writeValidation(w, r, "FORM_VALIDATION_FAILED", errs)
		return
	}
	dbKey := strings.TrimSpace(mux.Vars(r)["dbKey"])
	form, err := c.forms.UpdateFieldLogic(r.Context(), a, fieldschema.ProductsTable, dbKey, dto.JSSource)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dtos.FormToDTO(form))
}

func (c *FormController) Logs(w http.ResponseWriter, r *http.Request) {
	page, err := c.forms.ListLogs(r.Context(), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"items": dtos.MapItems(page.Items, dtos.FieldSchemaLogToDTO),
		"total": page.Total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

func (c *FormController) Columns(w http.ResponseWriter, r *http.Request) {
	cols, err := c.forms.EditableColumns(r.Context(), fieldschema.ProductsTable)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"columns": cols})
}
