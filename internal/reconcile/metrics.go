package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mmynk/subsplit/internal/ledger"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subsplit",
			Subsystem: "reconcile",
			Name:      "operations_total",
			Help:      "Payment operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "subsplit",
			Subsystem: "reconcile",
			Name:      "operation_duration_seconds",
			Help:      "Duration of payment operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subsplit",
			Subsystem: "reconcile",
			Name:      "transitions_total",
			Help:      "Payment status transitions",
		},
		[]string{"from", "to"},
	)

	creditsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "subsplit",
			Subsystem: "reconcile",
			Name:      "credits_generated_total",
			Help:      "Credits created from overpayments",
		},
	)

	cyclePaymentsCreated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "subsplit",
			Subsystem: "reconcile",
			Name:      "cycle_payments_created",
			Help:      "Number of payments created per generated cycle",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8, 10, 15},
		},
	)
)

// resultLabel is the metric label for an operation's result: the outcome on
// success, the error kind for domain errors and "error" otherwise.
func resultLabel(res *Result, err error) string {
	if err != nil {
		if kind, ok := ledger.KindOf(err); ok {
			return string(kind)
		}
		return "error"
	}
	return string(res.Outcome)
}

func observe(op string, start time.Time, res *Result, err error) {
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	operationsTotal.WithLabelValues(op, resultLabel(res, err)).Inc()
	if err != nil || res.Outcome == OutcomeNoop {
		return
	}
	transitionsTotal.WithLabelValues(string(res.From), string(res.To)).Inc()
	if res.Effects.CreditGenerated {
		creditsGeneratedTotal.Inc()
	}
}

func observeCycle(start time.Time, res *CycleResult, err error) {
	operationDuration.WithLabelValues(OpGenerateCycle).Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		label := "error"
		if kind, ok := ledger.KindOf(err); ok {
			label = string(kind)
		}
		operationsTotal.WithLabelValues(OpGenerateCycle, label).Inc()
	case res.Existing:
		operationsTotal.WithLabelValues(OpGenerateCycle, string(OutcomeNoop)).Inc()
	default:
		operationsTotal.WithLabelValues(OpGenerateCycle, string(OutcomeApplied)).Inc()
		cyclePaymentsCreated.Observe(float64(len(res.Payments)))
	}
}
