// Package config loads the service configuration from the environment.
package config

import (
	"strings"
	"time"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env          string `envconfig:"APP_ENV" default:"development"`
	SettingsFile string `envconfig:"SETTINGS_FILE"`

	HTTP     HTTPConfig     `envconfig:"HTTP"`
	Database DatabaseConfig `envconfig:"DB"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Storage  StorageConfig  `envconfig:"STORAGE"`
	Mail     MailConfig     `envconfig:"MAIL"`
	Render   RenderConfig   `envconfig:"RENDER"`
	Warmup   WarmupConfig   `envconfig:"WARMUP"`
	Sender   SenderConfig   `envconfig:"SENDER"`
	Jobs     JobsConfig     `envconfig:"JOBS"`
	Auth     AuthConfig     `envconfig:"AUTH"`
}

type HTTPConfig struct {
	Port         string        `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	BodyLimit    int           `envconfig:"BODY_LIMIT" default:"4194304"`
}

type DatabaseConfig struct {
	Driver       string `envconfig:"DRIVER" default:"postgres"`
	DSN          string `envconfig:"DSN"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns int    `envconfig:"MAX_IDLE_CONNS" default:"5"`
	AutoMigrate  bool   `envconfig:"AUTO_MIGRATE" default:"true"`
}

// RedisConfig is optional; an empty Addr keeps queues in memory or SQL.
type RedisConfig struct {
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
	Prefix   string `envconfig:"PREFIX" default:"courier"`
}

type StorageConfig struct {
	// Driver backs templates, languages, accounts and stores: sql or memory.
	Driver string `envconfig:"DRIVER" default:"sql"`

	// Queue backs queued messages: sql, redis or memory.
	Queue string `envconfig:"QUEUE" default:"sql"`

	// Attachments is where attachment files are read from: local or s3.
	Attachments string `envconfig:"ATTACHMENTS" default:"local"`
	LocalPath   string `envconfig:"LOCAL_PATH" default:"./attachments"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Prefix    string `envconfig:"S3_PREFIX"`
}

type MailConfig struct {
	Provider         string `envconfig:"PROVIDER" default:"console"`
	DefaultAccountID int64  `envconfig:"DEFAULT_ACCOUNT_ID" default:"1"`
	AWSRegion        string `envconfig:"AWS_REGION" default:"us-east-1"`
	SESConfigSet     string `envconfig:"SES_CONFIG_SET"`
	SMTPHost         string `envconfig:"SMTP_HOST"`
	SMTPPort         int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername     string `envconfig:"SMTP_USERNAME"`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD"`
	SMTPSSL          bool   `envconfig:"SMTP_SSL" default:"false"`
}

type RenderConfig struct {
	Engine string `envconfig:"ENGINE" default:"html"`

	// EmbedErrors writes evaluation failures into the rendered text instead
	// of the bare substituted text.
	EmbedErrors bool `envconfig:"EMBED_ERRORS" default:"true"`

	// CaseInvariantReplacement is the default when the settings store has no
	// value for messages.case_invariant_replacement.
	CaseInvariantReplacement bool `envconfig:"CASE_INVARIANT_REPLACEMENT" default:"false"`
}

type WarmupConfig struct {
	Enabled     bool          `envconfig:"ENABLED" default:"true"`
	Interval    time.Duration `envconfig:"INTERVAL" default:"60s"`
	HistorySize int           `envconfig:"HISTORY_SIZE" default:"20"`
}

type SenderConfig struct {
	Enabled     bool          `envconfig:"ENABLED" default:"true"`
	Interval    time.Duration `envconfig:"INTERVAL" default:"30s"`
	BatchSize   int           `envconfig:"BATCH_SIZE" default:"50"`
	Workers     int           `envconfig:"WORKERS" default:"2"`
	RateLimit   float64       `envconfig:"RATE_LIMIT" default:"10"`
	Burst       int           `envconfig:"BURST" default:"5"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"3"`
}

type JobsConfig struct {
	Concurrency     int           `envconfig:"CONCURRENCY" default:"2"`
	Queues          []string      `envconfig:"QUEUES" default:"default"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET"`
	Issuer    string        `envconfig:"ISSUER" default:"courier"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logx.Debug("config: loaded .env")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errx.Wrap(err, "invalid environment", errx.TypeConfiguration)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c *Config) validate() error {
	checks := []struct {
		field string
		value string
		allow []string
	}{
		{"DB_DRIVER", c.Database.Driver, []string{"postgres", "mysql"}},
		{"STORAGE_DRIVER", c.Storage.Driver, []string{"sql", "memory"}},
		{"STORAGE_QUEUE", c.Storage.Queue, []string{"sql", "redis", "memory"}},
		{"STORAGE_ATTACHMENTS", c.Storage.Attachments, []string{"local", "s3"}},
		{"MAIL_PROVIDER", c.Mail.Provider, []string{"console", "ses", "smtp"}},
		{"RENDER_ENGINE", c.Render.Engine, []string{"html", "text"}},
	}
	for _, ch := range checks {
		if !oneOf(ch.value, ch.allow) {
			return configError(ch.field, "must be one of "+strings.Join(ch.allow, ", "))
		}
	}

	if c.usesSQL() && c.Database.DSN == "" {
		return configError("DB_DSN", "required when sql storage is used")
	}
	if c.Storage.Queue == "redis" && c.Redis.Addr == "" {
		return configError("REDIS_ADDR", "required when STORAGE_QUEUE=redis")
	}
	if c.Storage.Attachments == "s3" && c.Storage.S3Bucket == "" {
		return configError("STORAGE_S3_BUCKET", "required when STORAGE_ATTACHMENTS=s3")
	}
	if c.Mail.Provider == "smtp" && c.Mail.SMTPHost == "" {
		return configError("MAIL_SMTP_HOST", "required when MAIL_PROVIDER=smtp")
	}
	if c.Warmup.Enabled && c.Warmup.Interval <= 0 {
		return configError("WARMUP_INTERVAL", "must be positive")
	}
	if c.Sender.Enabled && c.Sender.Interval <= 0 {
		return configError("SENDER_INTERVAL", "must be positive")
	}
	if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		return configError("AUTH_JWT_SECRET", "must be at least 32 characters in production")
	}
	return nil
}

func (c *Config) usesSQL() bool {
	return c.Storage.Driver == "sql" || c.Storage.Queue == "sql"
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func configError(field, reason string) error {
	return errx.New("invalid configuration", errx.TypeConfiguration).
		WithDetail("field", field).
		WithDetail("reason", reason)
}
