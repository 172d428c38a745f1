package inventory

import (
	"context"
	"time"

	"github.com/stockledger/stockledger/modules/inventory/domain/fieldschema"
	"github.com/stockledger/stockledger/modules/inventory/infrastructure/formschema"
	"github.com/stockledger/stockledger/modules/inventory/infrastructure/persistence"
	"github.com/stockledger/stockledger/modules/inventory/presentation/controllers"
	"github.com/stockledger/stockledger/modules/inventory/services"
	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/middleware"
)

type ModuleOptions struct {
	Auth              middleware.AuthOptions
	Defaults          services.Settings
	MaxPageSize       int
	SubmitMaxAttempts int
	CoalesceWindow    time.Duration
	FormCollection    string
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(persistence.MigrationFiles, persistence.MigrationDir)

	products := persistence.NewProductRepository()
	requests := persistence.NewChangeRequestRepository()
	activityLog := persistence.NewActivityLogRepository()

	settings := services.NewSettingsService(persistence.NewSettingsRepository(), m.opts.Defaults)
	audit := services.NewAuditTrail(activityLog, m.opts.CoalesceWindow)
	gateway := services.NewProductService(products, requests, audit, settings, app.EventPublisher(), m.opts.SubmitMaxAttempts)

	app.RegisterServices(
		settings,
		gateway,
		services.NewApprovalService(gateway, settings),
		services.NewQueryService(products, requests, activityLog, settings, m.opts.MaxPageSize),
		services.NewActivityService(gateway, activityLog, settings),
	)

	app.RegisterControllers(
		controllers.NewProductController(app, m.opts.Auth),
		controllers.NewApprovalController(app, m.opts.Auth),
		controllers.NewActivityController(app, m.opts.Auth),
		controllers.NewSettingsController(app, m.opts.Auth),
	)

	if db := app.DocumentStore(); db != nil {
		forms := formschema.NewMongoFormRepository(db, m.opts.FormCollection)
		app.RegisterServices(services.NewFormSchemaService(
			forms,
			persistence.NewFieldSchemaLogRepository(),
			persistence.NewSchemaColumnRepository(),
			app.EventPublisher(),
			settings,
			m.opts.MaxPageSize,
		))
		app.RegisterControllers(controllers.NewFormController(app, m.opts.Auth))
		app.Seeder().Register(func(ctx context.Context, _ application.Application) error {
			return forms.EnsureIndexes(ctx)
		})
	} else {
		app.Logger().WithField("table", fieldschema.ProductsTable).Warn("inventory: no document store, form endpoints disabled")
	}

	app.Seeder().Register(seedSettings(m.opts.Defaults))
	subscribe(app)
	return nil
}

func (m *Module) Name() string {
	return "inventory"
}
