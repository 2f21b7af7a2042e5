// Package logging builds the structured logger used by the dyntopics
// tools from an explicit Config.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects log level, destination and encoding.
type Config struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string
	// File receives log output when set (appended). Empty means stderr.
	File string
	// Mode is "plain" (message and fields only), "dev" (timestamps,
	// levels, callers) or "json".
	Mode string
}

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil && strings.TrimSpace(cfg.Level) != "" {
		return nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}
	if strings.TrimSpace(cfg.Level) == "" {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "json", "prod", "production":
		zc = zap.NewProductionConfig()
	case "dev", "development":
		zc = zap.NewDevelopmentConfig()
	case "", "plain":
		zc = zap.NewDevelopmentConfig()
		zc.Development = false
		zc.DisableCaller = true
		zc.DisableStacktrace = true
		zc.EncoderConfig.TimeKey = ""
		zc.EncoderConfig.LevelKey = ""
		zc.EncoderConfig.NameKey = ""
		zc.EncoderConfig.CallerKey = ""
	default:
		return nil, fmt.Errorf("invalid log mode %q (want plain, dev or json)", cfg.Mode)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Sampling = nil

	out := "stderr"
	if cfg.File != "" {
		out = cfg.File
	}
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{"stderr"}

	zl, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return &Logger{SugaredLogger: zl.Sugar()}, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}
