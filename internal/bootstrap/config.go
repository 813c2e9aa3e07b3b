package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/target/punchlist-gateway/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// InitLogger installs a JSON slog logger as the process default. Output goes
// to stdout and, when cfg.File is set, to a size-rotated file as well. The
// returned closer releases the file; it is a no-op without one.
func InitLogger(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.FileMaxSizeMB,
			MaxBackups: cfg.FileMaxBackups,
			MaxAge:     cfg.FileMaxAgeDays,
			Compress:   cfg.FileCompress,
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}))
	slog.SetDefault(logger)
	return logger, closer
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateConfig rejects combinations the gateway cannot start with.
func ValidateConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	var errs []error
	if cfg.Roles.Store == config.RoleStoreHTTP && cfg.Roles.HTTP.URLTemplate == "" {
		errs = append(errs, errors.New("ROLE_HTTP_URL_TEMPLATE is required when ROLE_STORE=http"))
	}
	if cfg.Auth.Mode == config.AuthModeOAuth && cfg.Auth.OAuth.DiscoveryURL == "" {
		errs = append(errs, errors.New("OAUTH_DISCOVERY_URL is required when AUTH_MODE=oauth"))
	}
	if cfg.Auth.Mode == config.AuthModeMock && !cfg.IsDev {
		errs = append(errs, errors.New("AUTH_MODE=mock is only allowed in development (DEV=true)"))
	}
	return errors.Join(errs...)
}
