package application

import (
	"context"
	"io/fs"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/stockledger/stockledger/pkg/eventbus"
)

type Controller interface {
	Register(r *mux.Router)
	Key() string
}

type Module interface {
	Register(app Application) error
	Name() string
}

type SeedFunc func(ctx context.Context, app Application) error

type Seeder interface {
	Seed(ctx context.Context, app Application) error
	Register(seedFuncs ...SeedFunc)
}

type MigrationManager interface {
	RegisterSchema(fsys fs.FS, dir string)
	Sources() []MigrationSource
}

type MigrationSource struct {
	FS  fs.FS
	Dir string
}

// Application is the container modules register their parts into.
type Application interface {
	DB() *pgxpool.Pool
	DocumentStore() *mongo.Database
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger
	Middleware() []mux.MiddlewareFunc
	Controllers() []Controller
	Migrations() MigrationManager
	Seeder() Seeder
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...any)
	Service(service any) any
	Services() map[reflect.Type]any
	OnShutdown(hook func(context.Context) error)
	Shutdown(ctx context.Context) error
}
