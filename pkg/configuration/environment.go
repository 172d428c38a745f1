package configuration

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stockledger/stockledger/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory, or from the
// nearest parent holding go.mod when none exist there. It returns the number
// of files loaded.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root, ok := findModuleRoot(); ok {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, files []string) []string {
	out := make([]string, 0, len(files))
	for _, file := range files {
		path := file
		if dir != "" {
			path = filepath.Join(dir, file)
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out = append(out, path)
		}
	}
	return out
}

func findModuleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"stockledger"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type MongoOptions struct {
	URI            string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database       string        `env:"MONGO_DATABASE" envDefault:"stockledger"`
	FormCollection string        `env:"MONGO_FORM_COLLECTION" envDefault:"forms"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"5s"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"stockledger"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type AuthOptions struct {
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-me"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:""`
}

// InventoryOptions are the fallbacks used when system_settings has no row
// for a rule.
type InventoryOptions struct {
	MinProductQty     int64         `env:"MIN_PRODUCT_QTY" envDefault:"1"`
	MinProductPrice   string        `env:"MIN_PRODUCT_PRICE" envDefault:"1.00"`
	SubmitMaxAttempts int           `env:"SUBMIT_MAX_ATTEMPTS" envDefault:"3"`
	CoalesceWindow    time.Duration `env:"ACTIVITY_COALESCE_WINDOW" envDefault:"1m"`
}

func (o *InventoryOptions) Validate() error {
	if o.MinProductQty < 0 {
		return fmt.Errorf("MIN_PRODUCT_QTY must be non-negative, got %d", o.MinProductQty)
	}
	price, err := decimal.NewFromString(o.MinProductPrice)
	if err != nil {
		return fmt.Errorf("invalid MIN_PRODUCT_PRICE=%q: %w", o.MinProductPrice, err)
	}
	if price.IsNegative() {
		return fmt.Errorf("MIN_PRODUCT_PRICE must be non-negative, got %s", o.MinProductPrice)
	}
	if o.SubmitMaxAttempts < 1 {
		o.SubmitMaxAttempts = 1
	}
	return nil
}

func (o *InventoryOptions) MinPrice() decimal.Decimal {
	return decimal.RequireFromString(o.MinProductPrice)
}

type Configuration struct {
	Database      DatabaseOptions
	Mongo         MongoOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions
	Auth          AuthOptions
	Inventory     InventoryOptions

	ServerPort       int      `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string   `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string   `env:"-"`
	Origin           string   `env:"ORIGIN" envDefault:"http://localhost:3200"`
	CorsOrigins      []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	PageSize         int      `env:"PAGE_SIZE" envDefault:"25"`
	MaxPageSize      int      `env:"MAX_PAGE_SIZE" envDefault:"100"`
	LogLevel         string   `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string   `env:"LOG_PATH" envDefault:"./logs/app.log"`
	// Looked up on every request; a uuidv4 is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// Falls back to request.RemoteAddr when absent.
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logFile io.Closer
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch strings.ToLower(c.LogLevel) {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

func (c *Configuration) validate() error {
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.Inventory.Validate(); err != nil {
		return fmt.Errorf("inventory configuration error: %w", err)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.MaxPageSize < c.PageSize {
		return fmt.Errorf("MAX_PAGE_SIZE (%d) must not be below PAGE_SIZE (%d)", c.MaxPageSize, c.PageSize)
	}
	if c.GoAppEnvironment == Production && c.Auth.JWTSecret == "change-me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// Unload closes the log file.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
