package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envLocal = "local"

var global = zap.NewNop()

// Setup builds the process-wide logger and stores it for the package-level
// helpers. Local env gets the human-readable development encoder.
func Setup(env string, level string) *zap.Logger {
	var cfg zap.Config
	if env == envLocal {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if parsed, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}

	global = logger

	return global
}

func Logger() *zap.Logger {
	return global
}

func Debug(msg string, fields ...zap.Field) {
	global.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	global.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	global.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	global.Error(msg, fields...)
}
