// Package observability builds the logger, tracer and metrics shared by the
// ranking engine's services and commands.
package observability

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const ServiceName = "olympiad-ranking"

// Config selects the logging format and level.
type Config struct {
	Environment string
	LogLevel    string
	JSONLogs    bool
	NoColor     bool
}

// Observability bundles the ambient telemetry handed to every module.
type Observability struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Metrics  Metrics
	Registry *prometheus.Registry
}

// New wires a logger writing to w, the global OpenTelemetry tracer, and a
// fresh Prometheus registry with the Go runtime collectors.
func New(cfg Config, w io.Writer) Observability {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logger := NewLogger(cfg, w).With(
		slog.String("service", ServiceName),
	)
	if cfg.Environment != "" {
		logger = logger.With(slog.String("environment", cfg.Environment))
	}

	return Observability{
		Logger:   logger,
		Tracer:   otel.Tracer(ServiceName),
		Metrics:  NewPrometheusMetrics(reg),
		Registry: reg,
	}
}

// NewLogger returns a colored console logger, or a JSON logger when
// cfg.JSONLogs is set.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.LogLevel)
	if cfg.JSONLogs {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    cfg.NoColor,
	}))
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
