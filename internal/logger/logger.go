package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"estimate-revision-model/internal/trace"
)

// Logger is the logging surface handed to pipeline components.
// Every call takes the request context so trace and span ids can be attached.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	ErrorWithErr(ctx context.Context, msg string, err error, args ...any)
	With(args ...any) Logger
	Sync() error
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level           string // DEBUG, INFO, WARN, ERROR
	Format          string // json or text
	DetailedLogging bool   // Enable debug logs and caller information
	TracingEnabled  bool   // Attach trace_id/span_id from the active span
	FilePath        string // Optional file sink in addition to stdout
}

// std is the process-wide logger used by the package-level helpers
var std = &zapLogger{sugar: zap.NewNop().Sugar()}

// Init initializes the global logger based on environment variables
func Init() error {
	return InitWithConfig(LoadConfigFromEnv())
}

// LoadConfigFromEnv loads logging configuration from environment variables
func LoadConfigFromEnv() LogConfig {
	return LogConfig{
		Level:           getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format:          getEnvOrDefault("LOG_FORMAT", "json"),
		DetailedLogging: getEnvOrDefault("LOG_DETAILED", "false") == "true",
		TracingEnabled:  getEnvOrDefault("LOG_TRACING_ENABLED", "true") == "true",
		FilePath:        os.Getenv("LOG_FILE"),
	}
}

// InitWithConfig replaces the global logger
func InitWithConfig(config LogConfig) error {
	l, err := New(config)
	if err != nil {
		return err
	}
	std = l.(*zapLogger)
	return nil
}

// New builds a standalone logger writing to stdout and, when configured, a log file
func New(config LogConfig) (Logger, error) {
	level := parseLogLevel(config.Level)
	if config.DetailedLogging {
		level = zapcore.DebugLevel
	}

	var encoder zapcore.Encoder
	if config.Format == "json" {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "time"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)}

	if config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		fileEnc := zap.NewProductionEncoderConfig()
		fileEnc.TimeKey = "time"
		fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(f), level))
	}

	return NewWithCore(zapcore.NewTee(cores...), config), nil
}

// NewWithCore wraps an existing zap core, mainly for tests
func NewWithCore(core zapcore.Core, config LogConfig) Logger {
	opts := []zap.Option{zap.AddCallerSkip(2)}
	if config.DetailedLogging {
		opts = append(opts, zap.AddCaller())
	}
	return &zapLogger{
		sugar:    zap.New(core, opts...).Sugar(),
		detailed: config.DetailedLogging,
		tracing:  config.TracingEnabled,
	}
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return NewWithCore(zapcore.NewNopCore(), LogConfig{})
}

// Default returns the global logger
func Default() Logger {
	return std
}

// Sync flushes buffered log entries of the global logger
func Sync() error {
	return std.Sync()
}

type zapLogger struct {
	sugar    *zap.SugaredLogger
	detailed bool
	tracing  bool
}

func (z *zapLogger) Debug(ctx context.Context, msg string, args ...any) {
	z.log(ctx, zapcore.DebugLevel, msg, 0, args...)
}

func (z *zapLogger) Info(ctx context.Context, msg string, args ...any) {
	z.log(ctx, zapcore.InfoLevel, msg, 0, args...)
}

func (z *zapLogger) Warn(ctx context.Context, msg string, args ...any) {
	z.log(ctx, zapcore.WarnLevel, msg, 0, args...)
}

func (z *zapLogger) Error(ctx context.Context, msg string, args ...any) {
	z.log(ctx, zapcore.ErrorLevel, msg, 0, args...)
}

// ErrorWithErr logs an error and records it on the active span
func (z *zapLogger) ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	z.recordError(ctx, err)
	z.log(ctx, zapcore.ErrorLevel, msg, 0, append([]any{"error", err}, args...)...)
}

func (z *zapLogger) With(args ...any) Logger {
	return &zapLogger{sugar: z.sugar.With(args...), detailed: z.detailed, tracing: z.tracing}
}

func (z *zapLogger) Sync() error {
	err := z.sugar.Sync()
	// stdout cannot be fsynced on most platforms
	if err != nil && strings.Contains(err.Error(), "/dev/stdout") {
		return nil
	}
	return err
}

func (z *zapLogger) recordError(ctx context.Context, err error) {
	if !z.tracing || err == nil {
		return
	}
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// log writes msg with trace ids prepended; skip adds caller frames for wrappers
func (z *zapLogger) log(ctx context.Context, level zapcore.Level, msg string, skip int, args ...any) {
	if level == zapcore.DebugLevel && !z.detailed {
		return
	}
	if traceAttrs := z.traceAttrs(ctx); traceAttrs != nil {
		args = append(traceAttrs, args...)
	}

	sugar := z.sugar
	if skip > 0 {
		sugar = sugar.WithOptions(zap.AddCallerSkip(skip))
	}

	switch level {
	case zapcore.DebugLevel:
		sugar.Debugw(msg, args...)
	case zapcore.InfoLevel:
		sugar.Infow(msg, args...)
	case zapcore.WarnLevel:
		sugar.Warnw(msg, args...)
	default:
		sugar.Errorw(msg, args...)
	}
}

// traceAttrs extracts trace ID and span ID from context for logging
func (z *zapLogger) traceAttrs(ctx context.Context) []any {
	if !z.tracing || ctx == nil {
		return nil
	}
	span := oteltrace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return []any{
		"trace_id", span.SpanContext().TraceID().String(),
		"span_id", span.SpanContext().SpanID().String(),
	}
}

// parseLogLevel converts string log level to a zap level
func parseLogLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Debug logs a debug message
func Debug(ctx context.Context, msg string, args ...any) {
	std.log(ctx, zapcore.DebugLevel, msg, 0, args...)
}

// Info logs an info message
func Info(ctx context.Context, msg string, args ...any) {
	std.log(ctx, zapcore.InfoLevel, msg, 0, args...)
}

// Warn logs a warning message
func Warn(ctx context.Context, msg string, args ...any) {
	std.log(ctx, zapcore.WarnLevel, msg, 0, args...)
}

// Error logs an error message
func Error(ctx context.Context, msg string, args ...any) {
	std.log(ctx, zapcore.ErrorLevel, msg, 0, args...)
}

// ErrorWithErr logs an error message with an error object
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	std.recordError(ctx, err)
	std.log(ctx, zapcore.ErrorLevel, msg, 0, append([]any{"error", err}, args...)...)
}

// DebugSkip logs at debug level attributing the entry skip frames further up
func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	std.log(ctx, zapcore.DebugLevel, msg, skip, args...)
}

// InfoSkip is Info for wrappers that should report their caller's location
func InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	std.log(ctx, zapcore.InfoLevel, msg, skip, args...)
}

// ErrorWithErrSkip is ErrorWithErr for wrappers
func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	std.recordError(ctx, err)
	std.log(ctx, zapcore.ErrorLevel, msg, skip, append([]any{"error", err}, args...)...)
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return std.detailed
}

// OperationTimer measures an operation and closes its span
type OperationTimer struct {
	ctx    context.Context
	span   oteltrace.Span
	start  time.Time
	fields []any
	log    Logger
}

// StartOperation starts timing an operation with an OpenTelemetry span
func StartOperation(ctx context.Context, log Logger, operation string, fields ...any) *OperationTimer {
	if log == nil {
		log = std
	}
	ctx, span := trace.StartSpan(ctx, operation)
	span.SetAttributes(toAttributes(fields)...)

	log.Debug(ctx, "Operation started", append([]any{"operation", operation}, fields...)...)

	return &OperationTimer{
		ctx:    ctx,
		span:   span,
		start:  time.Now(),
		fields: append([]any{"operation", operation}, fields...),
		log:    log,
	}
}

// Context returns the context carrying the operation span
func (ot *OperationTimer) Context() context.Context {
	return ot.ctx
}

// End completes the operation timer and logs the duration
func (ot *OperationTimer) End(additionalFields ...any) {
	duration := time.Since(ot.start)

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.SetAttributes(toAttributes(additionalFields)...)
	ot.span.SetStatus(codes.Ok, "completed")
	ot.span.End()

	fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds())
	ot.log.Debug(ot.ctx, "Operation completed", append(fields, additionalFields...)...)
}

// EndWithError completes the operation timer with an error
func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) {
	duration := time.Since(ot.start)

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.RecordError(err)
	ot.span.SetStatus(codes.Error, err.Error())
	ot.span.End()

	fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds())
	ot.log.ErrorWithErr(ot.ctx, "Operation failed", err, append(fields, additionalFields...)...)
}

// toAttributes converts key/value pairs into span attributes, dropping unsupported values
func toAttributes(fields []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		}
	}
	return attrs
}
