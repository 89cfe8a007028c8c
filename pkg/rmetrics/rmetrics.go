// Package rmetrics exposes the Prometheus metrics the scheduler,
// transaction state machine, and exchanges report against.
package rmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TasksScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relkv_tasks_scheduled_total",
			Help: "Total number of scheduler tasks dispatched, by step kind.",
		},
		[]string{"step_kind"},
	)

	TaskResult = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relkv_task_result_total",
			Help: "Total task completions by result (complete, complete_with_errors, yield, sleep).",
		},
		[]string{"result"},
	)

	WriterSeatsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relkv_writer_seats_in_use",
			Help: "Number of writer-pool seats currently held.",
		},
	)

	WriterSeatWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relkv_writer_seat_wait_duration_seconds",
			Help:    "Time a task waited to acquire a writer seat.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScanPivotCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relkv_scan_pivot_count",
			Help:    "Number of pivots returned by the key distribution oracle per parallel scan.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	TransactionStateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relkv_transaction_state_transitions_total",
			Help: "Transaction state machine transitions, by (from, to).",
		},
		[]string{"from", "to"},
	)

	ExchangeStalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relkv_exchange_stalls_total",
			Help: "Writer back-pressure stalls, by exchange kind.",
		},
		[]string{"exchange_kind"},
	)

	LockWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relkv_storage_lock_wait_duration_seconds",
			Help:    "Time spent waiting to acquire a storage-manager lock.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"lock_kind"},
	)
)

func init() {
	prometheus.MustRegister(
		TasksScheduled,
		TaskResult,
		WriterSeatsInUse,
		WriterSeatWaitDuration,
		ScanPivotCount,
		TransactionStateTransitions,
		ExchangeStalls,
		LockWaitDuration,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an in-flight operation's duration.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records elapsed time into histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records elapsed time into a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
