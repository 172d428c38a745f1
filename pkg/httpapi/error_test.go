package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockledger/stockledger/pkg/serrors"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWriteServiceError_MapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{serrors.Validation("PRODUCT_VALIDATION_FAILED", "quantity too low", map[string]string{"quantity": "must be at least 1"}), http.StatusUnprocessableEntity, "PRODUCT_VALIDATION_FAILED"},
		{fmt.Errorf("wrap: %w", serrors.NotFound("PRODUCT_NOT_FOUND", "product not found", nil)), http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{serrors.Conflict("REQUEST_ALREADY_RESOLVED", "already resolved", nil), http.StatusConflict, "REQUEST_ALREADY_RESOLVED"},
		{serrors.Forbidden("FORBIDDEN", "admin only"), http.StatusForbidden, "FORBIDDEN"},
		{serrors.Persistence("PERSISTENCE", "write failed", errors.New("conn reset")), http.StatusInternalServerError, "PERSISTENCE"},
		{errors.New("plain"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("X-Request-ID", "req-1")

		require.NoError(t, WriteServiceError(rec, req, tc.err))
		require.Equal(t, tc.status, rec.Code)
		env := decodeEnvelope(t, rec)
		require.Equal(t, tc.code, env.Code)
		require.Equal(t, "req-1", env.Meta["request_id"])
		if tc.status == http.StatusInternalServerError {
			require.Equal(t, "internal error", env.Message)
		}
	}
}

func TestWriteServiceError_IncludesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	err := serrors.Validation("PRODUCT_VALIDATION_FAILED", "invalid", map[string]string{"unit_price": "must be at least 1.00"})

	require.NoError(t, WriteServiceError(rec, req, err))
	env := decodeEnvelope(t, rec)
	require.Equal(t, "must be at least 1.00", env.Fields["unit_price"])
	require.NotEmpty(t, env.Meta["request_id"])
}

func TestWriteJSON_Page(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusOK, Page[int]{Items: []int{1, 2}, Total: 7, Page: 2, Limit: 2}))
	require.JSONEq(t, `{"items":[1,2],"total":7,"page":2,"limit":2}`, rec.Body.String())
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
