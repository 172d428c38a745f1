package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/composables"
	"github.com/stockledger/stockledger/pkg/httpapi"
)

type AuthOptions struct {
	Secret string
	Issuer string
}

// ProvideActor authenticates the bearer token and stores the caller in the
// request context. Requests without a valid token are rejected with 401.
func ProvideActor(opts AuthOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			meta := map[string]string{"request_id": httpapi.RequestID(w, r)}
			raw := bearerToken(r)
			if raw == "" {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authorization is required", meta)
				return
			}
			a, err := actor.ParseToken(opts.Secret, opts.Issuer, raw)
			if err != nil {
				composables.UseLogger(r.Context()).WithError(err).Debug("rejected actor token")
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid token", meta)
				return
			}
			ctx := composables.WithActor(r.Context(), a)
			ctx = composables.WithLogger(ctx, composables.UseLogger(ctx).WithFields(logrus.Fields{
				"actor-id":   a.ID,
				"actor-role": string(a.Role),
			}))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after ProvideActor.
func RequireAdmin() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, err := composables.UseActor(r.Context())
			if err != nil {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authorization is required",
					map[string]string{"request_id": httpapi.RequestID(w, r)})
				return
			}
			if !a.IsAdmin() {
				_ = httpapi.WriteError(w, http.StatusForbidden, "FORBIDDEN", "admin role required",
					map[string]string{"request_id": httpapi.RequestID(w, r)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
