package muzzle

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("jmuzzle.muzzle")
	meter  = otel.Meter("jmuzzle.muzzle")
)

var (
	classesScanned   metric.Int64Counter
	referencesFound  metric.Int64Histogram
	mismatchesByKind metric.Int64Counter
	moduleChecks     metric.Int64Counter
	checkLatency     metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		classesScanned, err = meter.Int64Counter(
			"muzzle_classes_scanned_total",
			metric.WithDescription("Classes read while collecting references"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		referencesFound, err = meter.Int64Histogram(
			"muzzle_references",
			metric.WithDescription("Referenced classes per collection"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		mismatchesByKind, err = meter.Int64Counter(
			"muzzle_mismatches_total",
			metric.WithDescription("Mismatches found by kind"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		moduleChecks, err = meter.Int64Counter(
			"muzzle_module_checks_total",
			metric.WithDescription("Instrumentation modules checked by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		checkLatency, err = meter.Float64Histogram(
			"muzzle_check_duration_seconds",
			metric.WithDescription("Duration of a module check"),
			metric.WithUnit("s"),
		)
		metricsErr = err
	})
	return metricsErr
}

func recordScan(ctx context.Context, classes, references int) {
	if err := initMetrics(); err != nil {
		return
	}
	classesScanned.Add(ctx, int64(classes))
	referencesFound.Record(ctx, int64(references))
}

func recordMismatches(ctx context.Context, mismatches []Mismatch) {
	if err := initMetrics(); err != nil {
		return
	}
	for _, m := range mismatches {
		mismatchesByKind.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", m.Kind())))
	}
}

func recordModuleCheck(ctx context.Context, duration time.Duration, outcome string) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	moduleChecks.Add(ctx, 1, attrs)
	checkLatency.Record(ctx, duration.Seconds(), attrs)
}

func setSpanCounts(span trace.Span, references, mismatches int) {
	span.SetAttributes(
		attribute.Int("muzzle.references", references),
		attribute.Int("muzzle.mismatches", mismatches),
	)
}
