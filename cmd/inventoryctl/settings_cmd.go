package main

import (
	"github.com/spf13/cobra"

	"github.com/stockledger/stockledger/modules/inventory/services"
	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/composables"
	"github.com/stockledger/stockledger/pkg/configuration"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or change inventory settings",
	}
	cmd.AddCommand(newSettingsGetCmd(), newSettingsSetCmd())
	return cmd
}

func withSettings(cmd *cobra.Command, fn func(*services.SettingsService) error) error {
	conf := configuration.Use()
	pool, err := connectDB(cmd.Context(), conf)
	if err != nil {
		return err
	}
	defer pool.Close()

	app, err := loadApp(conf, &application.ApplicationOptions{Pool: pool})
	if err != nil {
		return err
	}
	cmd.SetContext(composables.WithPool(cmd.Context(), pool))
	return fn(app.Service(services.SettingsService{}).(*services.SettingsService))
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, func(s *services.SettingsService) error {
				cur, err := s.Get(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), cur)
			})
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	var actorID int64

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting (min_product_qty, min_product_price, DEFAULT_PAGE_SIZE)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, func(s *services.SettingsService) error {
				if err := s.Set(cmd.Context(), actor.New(actorID, actor.RoleAdmin), args[0], args[1]); err != nil {
					return err
				}
				cur, err := s.Get(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), cur)
			})
		},
	}

	cmd.Flags().Int64Var(&actorID, "actor", 1, "Admin user id performing the change")
	return cmd
}
