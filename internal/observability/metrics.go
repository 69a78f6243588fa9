package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain collectors. Label values are drawn from small fixed sets (page
// outcomes, artifact kinds, transaction sources) so cardinality stays bounded.
var (
	pagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restore_pages_processed_total",
			Help: "Pages that finished processing, by outcome (completed|failed|released).",
		},
		[]string{"outcome"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restore_provider_call_duration_seconds",
			Help:    "Duration of enhancement provider calls, by outcome (ok|failed|empty).",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		},
		[]string{"outcome"},
	)

	creditsMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restore_ledger_credits_total",
			Help: "Credits moved by the ledger, by source (processing|release|purchase|refund|adjustment).",
		},
		[]string{"source"},
	)

	freePagesUsed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "restore_ledger_free_pages_total",
			Help: "Free-tier pages consumed.",
		},
	)

	artifactsUploaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restore_artifacts_uploaded_total",
			Help: "Uploaded artifacts, by kind (document|image).",
		},
		[]string{"kind"},
	)

	batchesInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "restore_batches_inflight",
			Help: "Processing batches currently running.",
		},
	)
)

func init() {
	prometheus.MustRegister(pagesProcessed, providerLatency, creditsMoved, freePagesUsed, artifactsUploaded, batchesInflight)
}

// PageFinished counts one page reaching a terminal (or released) state.
func PageFinished(outcome string) { pagesProcessed.WithLabelValues(outcome).Inc() }

// ProviderCall records the latency of one gateway attempt.
func ProviderCall(outcome string, d time.Duration) {
	providerLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// CreditsMoved records the absolute amount of credits applied for source.
func CreditsMoved(source string, amount float64) {
	if amount < 0 {
		amount = -amount
	}
	creditsMoved.WithLabelValues(source).Add(amount)
}

// FreePagesUsed records consumed free-tier pages.
func FreePagesUsed(n int) {
	if n > 0 {
		freePagesUsed.Add(float64(n))
	}
}

// ArtifactUploaded counts one accepted upload.
func ArtifactUploaded(kind string) { artifactsUploaded.WithLabelValues(kind).Inc() }

// BatchStarted increments the in-flight batch gauge and returns the matching
// decrement.
func BatchStarted() func() {
	batchesInflight.Inc()
	return batchesInflight.Dec
}
