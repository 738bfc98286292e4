// Package observe provides the OpenTelemetry instruments recorded while
// scanning recordings.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) uses the
// global meter provider; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cwbudde/algo-stepdetect/dsp/footstep"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/cwbudde/algo-stepdetect"

// Metrics holds every instrument. All fields are safe for concurrent use.
type Metrics struct {
	// Samples counts samples handed to a detector. Attributes: file, channel.
	Samples metric.Int64Counter

	// Detections counts confirmed events. Attributes: file, channel.
	Detections metric.Int64Counter

	// RejectedSamples counts non-finite or out-of-range input samples.
	RejectedSamples metric.Int64Counter

	// FilteredEvents counts confident candidates rejected by the energy gate.
	FilteredEvents metric.Int64Counter

	// EventConfidence records the confidence of each confirmed event.
	EventConfidence metric.Float64Histogram

	// ScanDuration tracks wall time per file. Attribute: status.
	ScanDuration metric.Float64Histogram

	// ActiveScans tracks files currently being processed.
	ActiveScans metric.Int64UpDownCounter
}

var confidenceBuckets = []float64{
	0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1,
}

var durationBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Samples, err = m.Int64Counter("stepdetect.samples",
		metric.WithDescription("Samples processed by a detector."),
		metric.WithUnit("{sample}"),
	); err != nil {
		return nil, err
	}
	if met.Detections, err = m.Int64Counter("stepdetect.detections",
		metric.WithDescription("Confirmed footstep events."),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}
	if met.RejectedSamples, err = m.Int64Counter("stepdetect.rejected_samples",
		metric.WithDescription("Input samples rejected as non-finite or out of range."),
		metric.WithUnit("{sample}"),
	); err != nil {
		return nil, err
	}
	if met.FilteredEvents, err = m.Int64Counter("stepdetect.filtered_events",
		metric.WithDescription("Confident candidates suppressed by the energy gate."),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}
	if met.EventConfidence, err = m.Float64Histogram("stepdetect.event.confidence",
		metric.WithDescription("Confidence of confirmed events."),
		metric.WithExplicitBucketBoundaries(confidenceBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ScanDuration, err = m.Float64Histogram("stepdetect.scan.duration",
		metric.WithDescription("Wall time spent scanning one file."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveScans, err = m.Int64UpDownCounter("stepdetect.scan.active",
		metric.WithDescription("Files currently being scanned."),
		metric.WithUnit("{file}"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordChannel adds the counters of one finished channel.
func (m *Metrics) RecordChannel(ctx context.Context, file string, channel int, st footstep.Stats) {
	attrs := metric.WithAttributes(
		attribute.String("file", file),
		attribute.Int("channel", channel),
	)
	m.Samples.Add(ctx, int64(st.Samples), attrs)
	m.Detections.Add(ctx, int64(st.Detections), attrs)
	m.RejectedSamples.Add(ctx, int64(st.Rejected), attrs)
	m.FilteredEvents.Add(ctx, int64(st.Filtered), attrs)
}

// RecordEvent records the confidence of one confirmed event.
func (m *Metrics) RecordEvent(ctx context.Context, confidence float64) {
	m.EventConfidence.Record(ctx, confidence)
}

// StartScan marks a file as active and returns a function that records its
// duration with the given status when called.
func (m *Metrics) StartScan(ctx context.Context) func(status string) {
	start := time.Now()
	m.ActiveScans.Add(ctx, 1)
	return func(status string) {
		m.ActiveScans.Add(ctx, -1)
		m.ScanDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("status", status)),
		)
	}
}
