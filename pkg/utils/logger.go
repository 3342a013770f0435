package utils

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileOptions configures the rotating log file sink.
type LogFileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewLoggerWithFile returns a logger that writes to stderr and, when file.Path is set,
// also to a rotating JSON log file.
func NewLoggerWithFile(debug bool, file LogFileOptions) (*zap.Logger, error) {
	if file.Path == "" {
		return NewLogger(debug)
	}
	if err := os.MkdirAll(filepath.Dir(file.Path), 0755); err != nil {
		return nil, err
	}

	level := zapcore.InfoLevel
	consoleEncCfg := zap.NewProductionEncoderConfig()
	if debug {
		level = zapcore.DebugLevel
		consoleEncCfg = zap.NewDevelopmentEncoderConfig()
	}

	fileEncCfg := zap.NewProductionEncoderConfig()
	fileEncCfg.TimeKey = "time"
	fileEncCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEncCfg), writer, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncCfg), zapcore.Lock(os.Stderr), level),
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
