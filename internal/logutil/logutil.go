package logutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/quailyquaily/tether/internal/pathutil"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

type loggerConfig struct {
	Level      string
	Format     string
	AddSource  bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func LoggerFromViper() (*slog.Logger, error) {
	cfg := loggerConfig{
		Level:      viper.GetString("logging.level"),
		Format:     viper.GetString("logging.format"),
		AddSource:  viper.GetBool("logging.add_source"),
		File:       viper.GetString("logging.file"),
		MaxSizeMB:  viper.GetInt("logging.max_size_mb"),
		MaxBackups: viper.GetInt("logging.max_backups"),
		MaxAgeDays: viper.GetInt("logging.max_age_days"),
	}
	if !viper.IsSet("logging.level") && viper.GetBool("trace") {
		cfg.Level = "debug"
	}
	return newLoggerFromConfig(cfg)
}

func newLoggerFromConfig(cfg loggerConfig) (*slog.Logger, error) {
	level, err := parseSlogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var w io.Writer = os.Stderr
	if file := strings.TrimSpace(cfg.File); file != "" {
		w = &lumberjack.Logger{
			Filename:   pathutil.ExpandHomePath(file),
			MaxSize:    normalizePositive(cfg.MaxSizeMB, 50),
			MaxBackups: normalizePositive(cfg.MaxBackups, 3),
			MaxAge:     normalizePositive(cfg.MaxAgeDays, 14),
		}
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown logging.format: %s", cfg.Format)
	}

	return slog.New(h), nil
}

func parseSlogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown logging.level: %s", s)
	}
}

func normalizePositive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
