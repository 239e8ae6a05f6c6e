package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "courier"

var (
	Renders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Template renders by outcome (ok, compilation, execution)",
		},
		[]string{"result"},
	)

	CacheCompiles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_cache_compiles_total",
			Help:      "Successful template compilations",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_cache_hits_total",
			Help:      "Template lookups served from the compiled cache",
		},
	)

	CacheCompileErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_cache_compile_errors_total",
			Help:      "Template compilations that failed",
		},
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "template_cache_entries",
			Help:      "Compiled templates currently cached",
		},
	)

	Dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Notification dispatches by template and outcome (queued, skipped, error)",
		},
		[]string{"template", "outcome"},
	)

	WarmupRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warmup_runs_total",
			Help:      "Completed warm-up sweeps",
		},
	)

	WarmupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warmup_failures_total",
			Help:      "Template/language combinations that failed to render during warm-up",
		},
	)

	WarmupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "warmup_duration_seconds",
			Help:      "Duration of warm-up sweeps",
			Buckets:   prometheus.DefBuckets,
		},
	)

	EmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Queued messages handed to the mail transport",
		},
	)

	EmailFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_failures_total",
			Help:      "Queued messages the transport rejected after retries",
		},
	)
)

var initOnce sync.Once

// Init registers every collector with the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			Renders,
			CacheCompiles,
			CacheHits,
			CacheCompileErrors,
			CacheEntries,
			Dispatches,
			WarmupRuns,
			WarmupFailures,
			WarmupDuration,
			EmailsSent,
			EmailFailures,
		)
	})
}
