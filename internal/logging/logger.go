package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nhle/smsexpert/internal/model"
)

// Options selects where log output goes.
type Options struct {
	Level string
	// File enables a rotating JSON log at this path.
	File string
	// Quiet suppresses console output. The TUI owns the terminal, so it
	// logs to file only.
	Quiet bool
}

// OptionsFromConfig builds Options from the application config.
// SMSEXPERT_ENV=production forces a rotating file in the config directory.
func OptionsFromConfig(cfg model.LogConfig) Options {
	opts := Options{Level: cfg.Level, File: cfg.File}
	if opts.File == "" && os.Getenv("SMSEXPERT_ENV") == "production" {
		opts.File = filepath.Join(model.DefaultConfigDir(), "logs", "smsexpert.log")
	}
	return opts
}

// New builds a zap logger. Without a file it returns a development console
// logger; with a file, JSON records go to a lumberjack-rotated log and,
// unless Quiet, to stderr as well.
func New(opts Options) (*zap.Logger, error) {
	level := zap.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	if opts.File == "" {
		if opts.Quiet {
			return zap.NewNop(), nil
		}
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		return cfg.Build()
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	})
	sink := rotating
	if !opts.Quiet {
		sink = zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stderr), rotating)
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		sink,
		level,
	)
	return zap.New(core), nil
}
