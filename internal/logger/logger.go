// Package logger configures the process-wide slog logger: JSON to stdout by
// default, or bridged into OpenTelemetry when OTEL_ENABLED=true. Warnings and
// errors are sampled to keep log volume sane under rule-evaluation load;
// counters are incremented regardless of sampling so metrics stay exact.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var (
	programLevel    = new(slog.LevelVar)
	errorSampleRate int32 = 1 // 1 = log everything; raise via ERROR_SAMPLE_RATE
	shutdownFunc    func(context.Context) error
)

// Counters exposed to the metrics layer. Always incremented, never sampled.
var (
	TotalErrors    atomic.Int64
	TotalWarnings  atomic.Int64
	Total5xxErrors atomic.Int64
	Total4xxErrors atomic.Int64
)

// Setup initializes the default slog logger from the environment. Call once
// from main before anything logs. Returns an error only when OTEL mode is
// requested and cannot be set up; JSON mode cannot fail.
func Setup(serviceName string) error {
	programLevel.Set(parseLevelOr(os.Getenv("LOG_LEVEL"), slog.LevelInfo))

	if rateStr := os.Getenv("ERROR_SAMPLE_RATE"); rateStr != "" {
		if rate, err := strconv.Atoi(rateStr); err == nil && rate > 0 {
			atomic.StoreInt32(&errorSampleRate, int32(rate))
		}
	}

	if strings.EqualFold(os.Getenv("OTEL_ENABLED"), "true") {
		shutdown, err := setupOTEL(context.Background(), serviceName)
		if err != nil {
			return fmt.Errorf("setup otel logging: %w", err)
		}
		shutdownFunc = shutdown
		return nil
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel})
	slog.SetDefault(slog.New(handler))
	return nil
}

// setupOTEL routes slog records through the OTLP gRPC log exporter.
func setupOTEL(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	handler := &levelHandler{
		level:   programLevel,
		handler: otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(provider)),
	}
	slog.SetDefault(slog.New(handler))

	return provider.Shutdown, nil
}

// Shutdown flushes the OTEL pipeline; a no-op in JSON mode.
func Shutdown(ctx context.Context) error {
	if shutdownFunc != nil {
		return shutdownFunc(ctx)
	}
	return nil
}

// SetLevel adjusts the minimum level at runtime.
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

func parseLevelOr(levelStr string, fallback slog.Level) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return fallback
	}
}

// shouldSample decides whether a warning or error is written out; 1 out of
// every N where N is the configured sample rate.
func shouldSample() bool {
	rate := atomic.LoadInt32(&errorSampleRate)
	if rate <= 1 {
		return true
	}
	return rand.Intn(int(rate)) == 0
}

// Debug logs a debug message; never sampled.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info message; never sampled.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn counts and (subject to sampling) logs a warning.
func Warn(msg string, args ...any) {
	TotalWarnings.Add(1)
	if shouldSample() {
		slog.Warn(msg, args...)
	}
}

// Error counts and (subject to sampling) logs an error.
func Error(msg string, args ...any) {
	TotalErrors.Add(1)
	if shouldSample() {
		slog.Error(msg, args...)
	}
}

// Fatal logs, flushes the OTEL pipeline if active, and exits.
func Fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	if shutdownFunc != nil {
		_ = shutdownFunc(context.Background())
	}
	os.Exit(1)
}

// CountHTTPStatus tracks 4xx/5xx responses for the metrics endpoint.
func CountHTTPStatus(status int) {
	switch {
	case status >= 500:
		Total5xxErrors.Add(1)
		TotalErrors.Add(1)
	case status >= 400:
		Total4xxErrors.Add(1)
		TotalWarnings.Add(1)
	}
}

// levelHandler filters records below the configured level before they reach
// the wrapped handler.
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}
