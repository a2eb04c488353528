package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{JSONLogs: true, LogLevel: "warn"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", slog.Int64("contest_id", 7))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"contest_id":7`)
}

func TestNew_ConsoleLoggerCarriesService(t *testing.T) {
	var buf bytes.Buffer
	obs := New(Config{NoColor: true, Environment: "test"}, &buf)
	require.NotNil(t, obs.Tracer)
	require.NotNil(t, obs.Registry)

	obs.Logger.Info("ready")
	line := buf.String()
	assert.True(t, strings.Contains(line, "service="+ServiceName), line)
	assert.Contains(t, line, "environment=test")
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)
	ctx := context.Background()

	m.RecordOperationAttempt(ctx, "RankContest", "RankingService")
	m.RecordOperationSuccess(ctx, "RankContest", "RankingService")
	m.RecordOperationDuration(ctx, "RankContest", "RankingService", 20*time.Millisecond)
	m.RecordSheetsRanked(ctx, 12, 40, 9)
	m.RecordCandidatesSelected(ctx, "second", "2.1 эрх жагсаалтаас", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("RankingService", "RankContest", "success")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.ranked.WithLabelValues("12")))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.scopes.WithLabelValues("12")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.selected.WithLabelValues("second", "2.1 эрх жагсаалтаас")))
}
