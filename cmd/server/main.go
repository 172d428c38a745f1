package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stockledger/stockledger/internal/server"
	"github.com/stockledger/stockledger/modules"
	"github.com/stockledger/stockledger/modules/inventory/infrastructure/formschema"
	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/configuration"
	"github.com/stockledger/stockledger/pkg/eventbus"
	"github.com/stockledger/stockledger/pkg/logging"
	"github.com/stockledger/stockledger/pkg/metrics"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}

	checks := map[string]metrics.Check{"postgres": pool.Ping}

	var documents *mongo.Database
	mongoCtx, mongoCancel := context.WithTimeout(context.Background(), conf.Mongo.ConnectTimeout)
	defer mongoCancel()
	client, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(conf.Mongo.URI))
	if err != nil {
		logger.WithError(err).Warn("mongo unavailable, form schema endpoints disabled")
	} else {
		documents = client.Database(conf.Mongo.Database)
		checks["mongo"] = formschema.Ping(documents)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		Mongo:    documents,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	app.OnShutdown(func(context.Context) error {
		pool.Close()
		return nil
	})
	if client != nil {
		app.OnShutdown(client.Disconnect)
	}

	if err := modules.Load(app, modules.BuiltInModules(conf)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	app.RegisterControllers(metrics.NewHealthController(checks))
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Run(runCtx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown hooks failed")
	}
}
