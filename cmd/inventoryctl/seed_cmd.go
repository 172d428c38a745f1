package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/configuration"
)

func newSeedCmd() *cobra.Command {
	var skipMongo bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write default settings and document store indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			pool, err := connectDB(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer pool.Close()

			opts := &application.ApplicationOptions{Pool: pool}
			if !skipMongo {
				ctx, cancel := context.WithTimeout(cmd.Context(), conf.Mongo.ConnectTimeout)
				defer cancel()
				client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Mongo.URI))
				if err != nil {
					return err
				}
				defer func() { _ = client.Disconnect(context.Background()) }()
				opts.Mongo = client.Database(conf.Mongo.Database)
			}

			app, err := loadApp(conf, opts)
			if err != nil {
				return err
			}
			return app.Seeder().Seed(cmd.Context(), app)
		},
	}

	cmd.Flags().BoolVar(&skipMongo, "skip-mongo", false, "Do not touch the document store")
	return cmd
}
