package middleware

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/stockledger/stockledger/pkg/composables"
	"github.com/stockledger/stockledger/pkg/httpapi"
)

const rateLimitPrefix = "stockledger:ratelimit"

type RateLimitConfig struct {
	RequestsPerPeriod int
	Period            time.Duration
	Store             limiter.Store
	RealIPHeader      string
}

func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
}

func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	store, err := sredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{
		Prefix: rateLimitPrefix,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create redis limiter store")
	}
	return store, nil
}

// RateLimit throttles requests per client IP.
func RateLimit(cfg RateLimitConfig) mux.MiddlewareFunc {
	period := cfg.Period
	if period <= 0 {
		period = time.Second
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	instance := limiter.New(store, limiter.Rate{Period: period, Limit: int64(cfg.RequestsPerPeriod)})
	mw := stdlib.NewMiddleware(
		instance,
		stdlib.WithKeyGetter(func(r *http.Request) string {
			return getRealIP(r, cfg.RealIPHeader)
		}),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			_ = httpapi.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests",
				map[string]string{"request_id": httpapi.RequestID(w, r)})
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			composables.UseLogger(r.Context()).WithError(err).Error("rate limiter store failed")
			_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error",
				map[string]string{"request_id": httpapi.RequestID(w, r)})
		}),
	)
	return func(next http.Handler) http.Handler {
		return mw.Handler(next)
	}
}
