package logx

import (
	"io"
	"os"
	"strings"
	"time"
)

// Format represents the output format
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Config holds the logger configuration
type Config struct {
	Level           Level
	Format          Format
	EnableColors    bool
	EnableCaller    bool
	EnableTimestamp bool

	// TimeFormat is a Go layout, or "unix" / "unixmilli".
	TimeFormat string

	Output io.Writer
}

func DefaultConfig() *Config {
	return &Config{
		Level:           LevelInfo,
		Format:          FormatConsole,
		EnableColors:    true,
		EnableTimestamp: true,
		TimeFormat:      time.RFC3339,
		Output:          os.Stdout,
	}
}

// LoadFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_COLOR, LOG_CALLER and
// LOG_TIME_FORMAT on top of DefaultConfig.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Level = ParseLevel(v)
	}
	if v := os.Getenv("LOG_FORMAT"); strings.EqualFold(v, "json") {
		config.Format = FormatJSON
	}
	if v := os.Getenv("LOG_COLOR"); v != "" {
		config.EnableColors = envBool(v)
	}
	if v := os.Getenv("LOG_CALLER"); v != "" {
		config.EnableCaller = envBool(v)
	}
	if v := os.Getenv("LOG_TIME_FORMAT"); v != "" {
		switch strings.ToUpper(v) {
		case "RFC3339":
			config.TimeFormat = time.RFC3339
		case "RFC3339NANO":
			config.TimeFormat = time.RFC3339Nano
		case "UNIX":
			config.TimeFormat = "unix"
		case "UNIXMILLI":
			config.TimeFormat = "unixmilli"
		default:
			config.TimeFormat = v
		}
	}

	return config
}

func envBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
