package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"dispatchsim/internal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
	config *config.LoggingConfig
}

// Fields type for structured logging
type Fields map[string]interface{}

// NewLogger creates a new logger instance based on configuration
func NewLogger(cfg *config.LoggingConfig) (*Logger, error) {
	var output io.Writer
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "file":
		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}

		output = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	default:
		output = os.Stdout
	}

	var handler slog.Handler
	handlerOpts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.Level == "debug",
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "timestamp"
			case slog.LevelKey:
				a.Key = "level"
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	}

	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, handlerOpts)
	case "text":
		handler = slog.NewTextHandler(output, handlerOpts)
	default:
		handler = slog.NewJSONHandler(output, handlerOpts)
	}

	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
		config: cfg,
	}, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fieldsToAttrs(fields Fields) []slog.Attr {
	if fields == nil {
		return nil
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// WithFields creates a new logger with the specified fields
func (l *Logger) WithFields(fields Fields) *Logger {
	if fields == nil {
		return l
	}
	attrs := fieldsToAttrs(fields)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	logger := l.Logger.With(args...)
	return &Logger{Logger: logger, config: l.config}
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	logger := l.Logger.With(slog.Any(key, value))
	return &Logger{Logger: logger, config: l.config}
}

// WithError creates a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	logger := l.Logger.With(slog.Any("error", err))
	return &Logger{Logger: logger, config: l.config}
}

// WithComponent creates a new logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithField("component", component)
}

// WithRun creates a new logger scoped to one evaluation run
func (l *Logger) WithRun(runID string) *Logger {
	return l.WithFields(Fields{
		"run_id":    runID,
		"component": "orchestrator",
	})
}

// WithVehicle creates a new logger scoped to a single vehicle
func (l *Logger) WithVehicle(vehicleID string) *Logger {
	return l.WithFields(Fields{
		"vehicle_id": vehicleID,
		"component":  "fleet",
	})
}

// WithRequest creates a new logger scoped to a single dispatch request
func (l *Logger) WithRequest(requestID string) *Logger {
	return l.WithFields(Fields{
		"request_id": requestID,
		"component":  "dispatch",
	})
}

// WithHTTPRequest creates a new logger with HTTP request fields
func (l *Logger) WithHTTPRequest(method, path, userAgent, requestID string) *Logger {
	return l.WithFields(Fields{
		"method":     method,
		"path":       path,
		"user_agent": userAgent,
		"request_id": requestID,
		"component":  "http",
	})
}

// WithDatabase creates a new logger with database operation fields
func (l *Logger) WithDatabase(operation, table string, duration int64) *Logger {
	return l.WithFields(Fields{
		"operation": operation,
		"table":     table,
		"duration":  duration,
		"component": "database",
	})
}

// WithTrace creates a new logger with distributed tracing fields
func (l *Logger) WithTrace(traceID, spanID, operation string) *Logger {
	return l.WithFields(Fields{
		"trace_id":  traceID,
		"span_id":   spanID,
		"operation": operation,
		"component": "trace",
	})
}

// LogSimulationEvent logs an orchestrator/clock lifecycle event
func (l *Logger) LogSimulationEvent(runID, event string, fields Fields) {
	logger := l.WithRun(runID).WithField("event", event)
	if fields != nil {
		logger = logger.WithFields(fields)
	}
	logger.Info("Simulation event")
}

// LogHTTPRequest logs HTTP request information
func (l *Logger) LogHTTPRequest(method, path, userAgent, requestID string, statusCode int, latencyMs int64, fields Fields) {
	logFields := Fields{
		"method":     method,
		"path":       path,
		"user_agent": userAgent,
		"request_id": requestID,
		"status":     statusCode,
		"latency_ms": latencyMs,
	}

	for k, v := range fields {
		logFields[k] = v
	}

	l.WithFields(logFields).Info("HTTP request")
}

// LogDatabaseOperation logs a database operation
func (l *Logger) LogDatabaseOperation(operation, table string, duration int64, err error, fields Fields) {
	logger := l.WithDatabase(operation, table, duration)
	if fields != nil {
		logger = logger.WithFields(fields)
	}

	if err != nil {
		logger.WithError(err).Error("Database operation failed")
	} else {
		logger.Debug("Database operation completed")
	}
}

// LogError logs an error with context
func (l *Logger) LogError(err error, component, operation string, fields Fields) {
	logger := l.WithError(err).
		WithField("component", component).
		WithField("operation", operation)
	if fields != nil {
		logger = logger.WithFields(fields)
	}
	logger.Error("Operation failed")
}

// Close closes the logger's handler when that handler implements
// io.Closer. The slog JSON and text handlers do not, so for file output
// the rotating log file is not closed by this call.
func (l *Logger) Close() error {
	if l.config.Output == "file" {
		if closer, ok := l.Logger.Handler().(io.Closer); ok {
			return closer.Close()
		}
	}
	return nil
}

// Convenience methods that match slog interface
func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.Logger.Error(msg, args...)
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger.Error(msg, args...)
	os.Exit(1)
}

// Global logger instance
var defaultLogger *Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg *config.LoggingConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	defaultLogger = logger
	return nil
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if defaultLogger == nil {
		logger, _ := NewLogger(&config.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		})
		return logger
	}
	return defaultLogger
}
