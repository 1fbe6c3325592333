package telemetry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func restoreGlobals(t *testing.T) {
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

func TestInitNoneIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitStdoutTraces(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{TraceExporter: ExporterStdout, Writer: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "Creator.CreateReferencesFrom")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "Creator.CreateReferencesFrom")
}

func TestInitPrometheusTextfile(t *testing.T) {
	restoreGlobals(t)
	path := filepath.Join(t.TempDir(), "jmuzzle.prom")
	shutdown, err := Init(context.Background(), Config{MetricExporter: ExporterPrometheus, MetricsFile: path})
	require.NoError(t, err)

	counter, err := otel.Meter("test").Int64Counter("jmuzzle.test.events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, shutdown(context.Background()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "jmuzzle_test_events")
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{TraceExporter: "zipkin"})
	assert.ErrorIs(t, err, ErrUnknownExporter)

	_, err = Init(context.Background(), Config{MetricExporter: ExporterPrometheus})
	assert.Error(t, err)
}
