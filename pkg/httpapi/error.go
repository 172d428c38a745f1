package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/stockledger/stockledger/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Page is the list response shape shared by every paginated endpoint.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// RequestIDHeader is overridden at startup from configuration.
var RequestIDHeader = "X-Request-ID"

// RequestID returns the inbound request id, generating and echoing one when absent.
func RequestID(w http.ResponseWriter, r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(RequestIDHeader)
	if header == "" {
		header = "X-Request-ID"
	}
	requestID := strings.TrimSpace(r.Header.Get(header))
	if requestID == "" {
		requestID = strings.TrimSpace(w.Header().Get("X-Request-Id"))
	}
	if requestID == "" {
		requestID = uuid.NewString()
		w.Header().Set(header, requestID)
	}
	return requestID
}

func StatusForKind(kind serrors.Kind) int {
	switch kind {
	case serrors.KindValidation:
		return http.StatusUnprocessableEntity
	case serrors.KindNotFound:
		return http.StatusNotFound
	case serrors.KindConflict:
		return http.StatusConflict
	case serrors.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError renders err with the status matching its kind. Internal
// and persistence failures never leak their cause to the client.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) error {
	meta := map[string]string{"request_id": RequestID(w, r)}

	var be *serrors.BaseError
	if !errors.As(err, &be) {
		return WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error", meta)
	}
	status := StatusForKind(be.Kind)
	message := be.Message
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    be.Code,
		Message: message,
		Meta:    meta,
		Fields:  be.Fields,
	})
}
