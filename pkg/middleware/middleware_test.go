package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/composables"
	"github.com/stockledger/stockledger/pkg/constants"
)

func bufferedLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func chain(h http.Handler, mws ...mux.MiddlewareFunc) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestWithLogger_RequestIDAndLogs(t *testing.T) {
	log, buf := bufferedLogger()
	var seen string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
		composables.UseLogger(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusCreated)
	}), WithLogger(log, DefaultLoggerOptions()))

	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"name":"Widget"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "req-1", seen)
	require.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	out := buf.String()
	require.Contains(t, out, "request started")
	require.Contains(t, out, "inside handler")
	require.Contains(t, out, "request completed")
	require.Contains(t, out, `Widget`)
}

func TestWithLogger_GeneratesRequestID(t *testing.T) {
	log, _ := bufferedLogger()
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), WithLogger(log, DefaultLoggerOptions()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestWithLogger_RecoversPanic(t *testing.T) {
	log, buf := bufferedLogger()
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), WithLogger(log, DefaultLoggerOptions()))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "INTERNAL_SERVER_ERROR")
	require.Contains(t, buf.String(), "panic recovered")
}

func TestProvide(t *testing.T) {
	var got any
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Context().Value(constants.PoolKey)
	}), Provide(constants.PoolKey, "app"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "app", got)
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	ip, ok := realIP(req, "X-Real-IP")
	require.True(t, ok)
	require.Equal(t, "10.0.0.1", ip)

	req.Header.Set("X-Real-IP", "203.0.113.9, 10.0.0.1")
	ip, _ = realIP(req, "X-Real-IP")
	require.Equal(t, "203.0.113.9", ip)
}

func TestProvideActor(t *testing.T) {
	opts := AuthOptions{Secret: "secret", Issuer: "stockledger"}
	var got actor.Actor
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, err := composables.UseActor(r.Context())
		require.NoError(t, err)
		got = a
	}), ProvideActor(opts))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		raw, err := actor.SignToken(opts.Secret, opts.Issuer, actor.New(9, actor.RoleEditor), time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, actor.New(9, actor.RoleEditor), got)
	})
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := RequireAdmin()(ok)

	serve := func(a *actor.Actor) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if a != nil {
			req = req.WithContext(composables.WithActor(req.Context(), *a))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	admin := actor.New(1, actor.RoleAdmin)
	editor := actor.New(2, actor.RoleEditor)
	require.Equal(t, http.StatusUnauthorized, serve(nil))
	require.Equal(t, http.StatusForbidden, serve(&editor))
	require.Equal(t, http.StatusOK, serve(&admin))
}

func TestRateLimit(t *testing.T) {
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		RateLimit(RateLimitConfig{RequestsPerPeriod: 2, Period: time.Minute, Store: NewMemoryStore()}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore("://nope")
	require.Error(t, err)
}

func TestCors_Preflight(t *testing.T) {
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), Cors("http://localhost:3000"))
	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
