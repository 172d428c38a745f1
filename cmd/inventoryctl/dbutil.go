package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/stockledger/stockledger/modules"
	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/configuration"
)

func connectDB(ctx context.Context, conf *configuration.Configuration) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	return pool, nil
}

// loadApp builds an application with every built-in module registered.
// pool may be nil for commands that only need module metadata.
func loadApp(conf *configuration.Configuration, opts *application.ApplicationOptions) (application.Application, error) {
	if opts.Logger == nil {
		opts.Logger = conf.Logger()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	app := application.New(opts)
	if err := modules.Load(app, modules.BuiltInModules(conf)...); err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	return app, nil
}
