package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/composables"
	"github.com/stockledger/stockledger/pkg/httpapi"
	"github.com/stockledger/stockledger/pkg/middleware"
)

func meta(w http.ResponseWriter, r *http.Request) map[string]string {
	return map[string]string{"request_id": httpapi.RequestID(w, r)}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		composables.UseLogger(r.Context()).WithError(err).Warn("failed to encode response")
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	_ = httpapi.WriteError(w, status, code, message, meta(w, r))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	composables.UseLogger(r.Context()).WithError(err).Debug("request failed")
	_ = httpapi.WriteServiceError(w, r, err)
}

func writeValidation(w http.ResponseWriter, r *http.Request, code string, fields map[string]string) {
	_ = httpapi.WriteJSON(w, http.StatusUnprocessableEntity, &httpapi.ErrorEnvelope{
		Code:    code,
		Message: "validation failed",
		Meta:    meta(w, r),
		Fields:  fields,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return false
	}
	return true
}

// currentActor is only reachable behind ProvideActor, so a missing actor
// means a routing mistake.
func currentActor(w http.ResponseWriter, r *http.Request) (actor.Actor, bool) {
	a, err := composables.UseActor(r.Context())
	if err != nil {
		writeAPIError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "authorization is required")
		return actor.Actor{}, false
	}
	return a, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id < 0 {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_ID", "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil {
		return 0
	}
	return v
}

func queryInt64(r *http.Request, key string) *int64 {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func authenticated(auth middleware.AuthOptions) []mux.MiddlewareFunc {
	return []mux.MiddlewareFunc{middleware.ProvideActor(auth)}
}

func adminOnly(auth middleware.AuthOptions) []mux.MiddlewareFunc {
	return []mux.MiddlewareFunc{middleware.ProvideActor(auth), middleware.RequireAdmin()}
}
