package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/configuration"
	"github.com/stockledger/stockledger/pkg/constants"
	"github.com/stockledger/stockledger/pkg/httpapi"
	"github.com/stockledger/stockledger/pkg/middleware"
	"github.com/stockledger/stockledger/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader
	httpapi.RequestIDHeader = conf.RequestIDHeader

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, loggerOpts),
		middleware.TracedMiddleware("database"),
		middleware.Provide(constants.PoolKey, options.Pool),
		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.CorsOrigins...),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store
		switch conf.RateLimit.Storage {
		case "redis":
			var err error
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}

		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
				RealIPHeader:      conf.RealIPHeader,
			}),
		)
	}

	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app, http.HandlerFunc(notFound), http.HandlerFunc(methodNotAllowed)), nil
}

func notFound(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteError(w, http.StatusNotFound, "ROUTE_NOT_FOUND", "route not found",
		map[string]string{"request_id": httpapi.RequestID(w, r)})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed",
		map[string]string{"request_id": httpapi.RequestID(w, r)})
}
