package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger so components share one structured logger.
type Logger struct {
	*zap.Logger
}

// NewLogger creates a production logger writing JSON to stdout at info level.
func NewLogger() (*Logger, error) {
	return NewLoggerWithLevel("info", "json")
}

// NewLoggerWithLevel creates a logger with the given level ("debug", "info",
// "warn", "error") and encoding ("json" or "console").
func NewLoggerWithLevel(level string, encoding string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(lvl)

	if encoding != "" {
		config.Encoding = encoding
	}

	if encoding == "console" {
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: zapLogger}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l.Logger != nil {
		return l.Logger.Sync()
	}

	return nil
}
