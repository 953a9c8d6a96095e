// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the ingestion labels (job, step, status, kind, field) onto
//     Prometheus labels.
//   - Pushing collected metrics to a Prometheus Pushgateway instance instead
//     of exposing an HTTP scrape endpoint, since a tick load is a short-lived
//     batch job with nothing to scrape afterwards.
//
// The package intentionally contains all Prometheus-specific dependencies so
// that the rest of the project remains decoupled from Prometheus and can swap
// to alternative backends (e.g. Datadog, StatsD) without changes to the core
// ingestion pipeline.
package prompush

import (
	"fmt"

	"github.com/mwridgway/StratagemForge/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	// Step-level metrics
	stepCounter  *prometheus.CounterVec // "tickload_step_total"
	stepDuration *prometheus.SummaryVec // "tickload_step_duration_seconds"

	// Row-level metrics
	rowCounter       *prometheus.CounterVec // "tickload_rows_total"
	batchCounter     prometheus.Counter     // "tickload_batches_total"
	defaultedCounter *prometheus.CounterVec // "tickload_defaulted_fields_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (typically the demo filename).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "tickload"
	}

	reg := prometheus.NewRegistry()

	// job is the Pushgateway grouping key; step, status, kind, and field are
	// dynamic labels on the collectors.
	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickload_step_total",
			Help: "Total number of ingestion step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "tickload_step_duration_seconds",
			Help:       "Duration of ingestion steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)

	// ROW metrics: kind (normalized, inserted).
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickload_rows_total",
			Help: "Row-level counts per kind (normalized, inserted).",
		},
		[]string{"kind"},
	)

	// BATCH metrics: simple counter per job (job is grouping label via Pushgateway).
	batchCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tickload_batches_total",
			Help: "Total number of insert chunks flushed for this load.",
		},
	)

	// DEFAULTED metrics: per destination column, how often the normalizer had
	// to substitute the documented default.
	defaultedCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickload_defaulted_fields_total",
			Help: "Source fields replaced by their default during normalization, per column.",
		},
		[]string{"field"},
	)

	if err := reg.Register(stepCounter); err != nil {
		return nil, fmt.Errorf("prompush: register step counter: %w", err)
	}
	if err := reg.Register(stepDuration); err != nil {
		return nil, fmt.Errorf("prompush: register step summary: %w", err)
	}
	if err := reg.Register(rowCounter); err != nil {
		return nil, fmt.Errorf("prompush: register row counter: %w", err)
	}
	if err := reg.Register(batchCounter); err != nil {
		return nil, fmt.Errorf("prompush: register batch counter: %w", err)
	}
	if err := reg.Register(defaultedCounter); err != nil {
		return nil, fmt.Errorf("prompush: register defaulted counter: %w", err)
	}

	return &Backend{
		gatewayURL:       gatewayURL,
		jobName:          jobName,
		reg:              reg,
		stepCounter:      stepCounter,
		stepDuration:     stepDuration,
		rowCounter:       rowCounter,
		batchCounter:     batchCounter,
		defaultedCounter: defaultedCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "tickload_step_total":
		if b.stepCounter == nil {
			return
		}
		step := labels["step"]
		status := labels["status"]
		b.stepCounter.WithLabelValues(step, status).Add(delta)

	case "tickload_rows_total":
		if b.rowCounter == nil {
			return
		}
		kind := labels["kind"]
		b.rowCounter.WithLabelValues(kind).Add(delta)

	case "tickload_batches_total":
		if b.batchCounter == nil {
			return
		}
		b.batchCounter.Add(delta)

	case "tickload_defaulted_fields_total":
		if b.defaultedCounter == nil {
			return
		}
		field := labels["field"]
		b.defaultedCounter.WithLabelValues(field).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "tickload_step_duration_seconds" || b.stepDuration == nil {
		return
	}
	step := labels["step"]
	status := labels["status"]
	b.stepDuration.WithLabelValues(step, status).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
