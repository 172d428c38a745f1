package modules

import (
	"github.com/stockledger/stockledger/modules/inventory"
	"github.com/stockledger/stockledger/modules/inventory/services"
	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/configuration"
	"github.com/stockledger/stockledger/pkg/middleware"
)

// BuiltInModules returns the modules every binary loads.
func BuiltInModules(conf *configuration.Configuration) []application.Module {
	return []application.Module{
		inventory.NewModule(&inventory.ModuleOptions{
			Auth: middleware.AuthOptions{
				Secret: conf.Auth.JWTSecret,
				Issuer: conf.Auth.JWTIssuer,
			},
			Defaults: services.Settings{
				MinProductQty:   conf.Inventory.MinProductQty,
				MinProductPrice: conf.Inventory.MinPrice().StringFixed(2),
				DefaultPageSize: conf.PageSize,
			},
			MaxPageSize:       conf.MaxPageSize,
			SubmitMaxAttempts: conf.Inventory.SubmitMaxAttempts,
			CoalesceWindow:    conf.Inventory.CoalesceWindow,
			FormCollection:    conf.Mongo.FormCollection,
		}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
