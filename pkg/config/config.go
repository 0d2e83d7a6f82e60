package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Bot      BotConfig
	DB       DBConfig
	Redis    RedisConfig
	Signing  SigningConfig
	Dispatch DispatchConfig
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
	Env          string `envconfig:"GRATIBOT_APP_ENV" default:"production"`
	Version      string `envconfig:"GRATIBOT_APP_VERSION" default:"dev"`
	Port         string `envconfig:"GRATIBOT_APP_PORT" default:"3001"`
	LogLevel     string `envconfig:"GRATIBOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GRATIBOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type BotConfig struct {
	Token         string `envconfig:"GRATIBOT_API_TOKEN" required:"true"`
	Username      string `envconfig:"GRATIBOT_BOT_USERNAME" default:"gratibot"`
	WebhookHost   string `envconfig:"GRATIBOT_WEBHOOK_HOST"`
	WebhookPath   string `envconfig:"GRATIBOT_WEBHOOK_PATH" default:"/api/bot/webhook"`
	WebhookSecret string `envconfig:"GRATIBOT_WEBHOOK_SECRET"`
	APIBaseURL    string `envconfig:"GRATIBOT_BOT_API_BASE_URL" default:"https://api.telegram.org"`
	DefaultLocale string `envconfig:"GRATIBOT_DEFAULT_LOCALE" default:"pt"`
}

// WebhookURL joins the public host and the webhook path.
func (b BotConfig) WebhookURL() string {
	if b.WebhookHost == "" {
		return ""
	}
	return strings.TrimSuffix(b.WebhookHost, "/") + b.WebhookPath
}

type DBConfig struct {
	DSN    string `envconfig:"GRATIBOT_DB_DSN"`
	Driver string `envconfig:"GRATIBOT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"GRATIBOT_DB_HOST"`
	Port     int    `envconfig:"GRATIBOT_DB_PORT" default:"5432"`
	User     string `envconfig:"GRATIBOT_DB_USER"`
	Password string `envconfig:"GRATIBOT_DB_PASSWORD"`
	Name     string `envconfig:"GRATIBOT_DB_NAME"`
	SSLMode  string `envconfig:"GRATIBOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GRATIBOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GRATIBOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GRATIBOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GRATIBOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GRATIBOT_REDIS_URL"`
	Password     string        `envconfig:"GRATIBOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"GRATIBOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GRATIBOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GRATIBOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GRATIBOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GRATIBOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GRATIBOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis-backed conversation store was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

type SigningConfig struct {
	BaseURL string        `envconfig:"GRATIBOT_SIGNING_BASE_URL" default:"https://api-esr.hypha.earth"`
	Account string        `envconfig:"GRATIBOT_SIGNING_ACCOUNT" default:"gratz.seeds"`
	Actor   string        `envconfig:"GRATIBOT_SIGNING_ACTOR" default:"............1"`
	Timeout time.Duration `envconfig:"GRATIBOT_SIGNING_TIMEOUT" default:"10s"`
}

type DispatchConfig struct {
	ScratchTTL time.Duration `envconfig:"GRATIBOT_CONVERSATION_TTL" default:"30m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost:     db.Host,
		EnvDBUser:     db.User,
		EnvDBName:     db.Name,
		EnvDBPassword: db.Password,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(db.User, db.Password),
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
