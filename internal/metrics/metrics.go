package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Recorder owns its own registry so tests and multiple servers in one
// process never collide on the default registerer. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry         *prometheus.Registry
	shiftOps         *prometheus.CounterVec
	dayCloses        *prometheus.CounterVec
	degradations     *prometheus.CounterVec
	cashVariance     *prometheus.HistogramVec
	ledgerEntries    *prometheus.CounterVec
	unpaidRejections prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		shiftOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "totalhealth",
			Name:      "shift_operations_total",
			Help:      "Shift open/close attempts by operation and outcome.",
		}, []string{"operation", "outcome"}),
		dayCloses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "totalhealth",
			Name:      "day_closes_total",
			Help:      "Day-close attempts by outcome.",
		}, []string{"outcome"}),
		degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "totalhealth",
			Name:      "sales_aggregation_degraded_total",
			Help:      "Sales aggregations replaced by a zero snapshot.",
		}, []string{"scope"}),
		cashVariance: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "totalhealth",
			Name:      "cash_variance",
			Help:      "Counted cash minus expected cash sales.",
			Buckets:   []float64{-500, -100, -50, -10, -1, 0, 1, 10, 50, 100, 500},
		}, []string{"scope"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "totalhealth",
			Name:      "payment_ledger_entries_total",
			Help:      "Payment history entries appended by action.",
		}, []string{"action"}),
		unpaidRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "totalhealth",
			Name:      "day_close_unpaid_rejections_total",
			Help:      "Day-closes refused because unpaid orders remain.",
		}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.shiftOps,
		r.dayCloses,
		r.degradations,
		r.cashVariance,
		r.ledgerEntries,
		r.unpaidRejections,
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ShiftOperation(operation string, outcome string) {
	if r == nil {
		return
	}
	r.shiftOps.WithLabelValues(operation, outcome).Inc()
}

func (r *Recorder) DayClose(outcome string) {
	if r == nil {
		return
	}
	r.dayCloses.WithLabelValues(outcome).Inc()
}

func (r *Recorder) UnpaidRejection() {
	if r == nil {
		return
	}
	r.unpaidRejections.Inc()
}

func (r *Recorder) AggregationDegraded(scope string) {
	if r == nil {
		return
	}
	r.degradations.WithLabelValues(scope).Inc()
}

func (r *Recorder) CashVariance(scope string, variance float64) {
	if r == nil {
		return
	}
	r.cashVariance.WithLabelValues(scope).Observe(variance)
}

func (r *Recorder) LedgerEntry(action string) {
	if r == nil {
		return
	}
	r.ledgerEntries.WithLabelValues(action).Inc()
}
