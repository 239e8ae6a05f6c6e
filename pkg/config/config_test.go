package config

import (
	"testing"
	"time"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://courier@localhost/courier?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "html", cfg.Render.Engine)
	assert.True(t, cfg.Render.EmbedErrors)
	assert.Equal(t, 60*time.Second, cfg.Warmup.Interval)
	assert.Equal(t, 20, cfg.Warmup.HistorySize)
	assert.Equal(t, 30*time.Second, cfg.Sender.Interval)
	assert.Equal(t, int64(1), cfg.Mail.DefaultAccountID)
	assert.Equal(t, []string{"default"}, cfg.Jobs.Queues)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("STORAGE_QUEUE", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RENDER_EMBED_ERRORS", "false")
	t.Setenv("WARMUP_INTERVAL", "5m")
	t.Setenv("MAIL_PROVIDER", "smtp")
	t.Setenv("MAIL_SMTP_HOST", "smtp.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Render.EmbedErrors)
	assert.Equal(t, 5*time.Minute, cfg.Warmup.Interval)
	assert.Equal(t, "smtp.example.com", cfg.Mail.SMTPHost)
	assert.Equal(t, 587, cfg.Mail.SMTPPort)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "sqlite", "DB_DSN": "x"}, "DB_DRIVER"},
		{"sql without dsn", map[string]string{}, "DB_DSN"},
		{"redis without addr", map[string]string{"STORAGE_DRIVER": "memory", "STORAGE_QUEUE": "redis"}, "REDIS_ADDR"},
		{"s3 without bucket", map[string]string{"DB_DSN": "x", "STORAGE_ATTACHMENTS": "s3"}, "STORAGE_S3_BUCKET"},
		{"unknown engine", map[string]string{"DB_DSN": "x", "RENDER_ENGINE": "razor"}, "RENDER_ENGINE"},
		{"short secret in production", map[string]string{"DB_DSN": "x", "APP_ENV": "production", "AUTH_JWT_SECRET": "short"}, "AUTH_JWT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.True(t, errx.IsType(err, errx.TypeConfiguration))

			var e *errx.Error
			require.True(t, errx.As(err, &e))
			assert.Equal(t, tt.field, e.Details["field"])
		})
	}
}
