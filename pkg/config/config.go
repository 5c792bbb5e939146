package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "CURA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Workflow  WorkflowConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CURA_APP_ENV" default:"dev"`
	Port         string `envconfig:"CURA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CURA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CURA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CURA_DB_DSN"`
	Driver string `envconfig:"CURA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CURA_DB_HOST"`
	Port     int    `envconfig:"CURA_DB_PORT" default:"5432"`
	User     string `envconfig:"CURA_DB_USER"`
	Password string `envconfig:"CURA_DB_PASSWORD"`
	Name     string `envconfig:"CURA_DB_NAME"`
	SSLMode  string `envconfig:"CURA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CURA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CURA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CURA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CURA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"CURA_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CURA_REDIS_URL"`
	Address      string        `envconfig:"CURA_REDIS_ADDR"`
	Password     string        `envconfig:"CURA_REDIS_PASSWORD"`
	DB           int           `envconfig:"CURA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CURA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CURA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CURA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CURA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CURA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CURA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CURA_JWT_ISSUER" default:"cura"`
	ExpirationMinutes int    `envconfig:"CURA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"CURA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"CURA_PUBSUB_NOTIFICATION_TOPIC" default:"cura-notification-events"`
}

// WorkflowConfig carries the tunables of the prescription/order core.
type WorkflowConfig struct {
	DeliveryFeeCents           int64           `envconfig:"CURA_DELIVERY_FEE_CENTS" default:"2000"`
	FreeDeliveryThresholdCents int64           `envconfig:"CURA_FREE_DELIVERY_THRESHOLD_CENTS" default:"50000"`
	TaxRate                    decimal.Decimal `envconfig:"CURA_TAX_RATE" default:"0.14"`
	CreditEarnRate             decimal.Decimal `envconfig:"CURA_CREDIT_EARN_RATE" default:"0.05"`
	ReturnWindow               time.Duration   `envconfig:"CURA_RETURN_WINDOW" default:"168h"`
	ReviewBaseDuration         time.Duration   `envconfig:"CURA_REVIEW_BASE_DURATION" default:"2h"`
	SuspendedBaseDuration      time.Duration   `envconfig:"CURA_SUSPENDED_BASE_DURATION" default:"4h"`
	MaxPrescriptionImages      int             `envconfig:"CURA_MAX_PRESCRIPTION_IMAGES" default:"10"`
}

type RateLimitConfig struct {
	Window     time.Duration `envconfig:"CURA_RATE_LIMIT_WINDOW" default:"1m"`
	ActorLimit int           `envconfig:"CURA_RATE_LIMIT_ACTOR_LIMIT" default:"60"`
	IPLimit    int           `envconfig:"CURA_RATE_LIMIT_IP_LIMIT" default:"120"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for _, part := range []struct {
		name  string
		value string
	}{
		{"CURA_DB_HOST", db.Host},
		{"CURA_DB_USER", db.User},
		{"CURA_DB_NAME", db.Name},
	} {
		if part.value == "" {
			missing = append(missing, part.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either CURA_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
