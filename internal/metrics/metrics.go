// Package metrics holds the daemon's prometheus collectors. A nil *Set is
// valid and records nothing, so wiring metrics stays optional in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Set struct {
	allocations   prometheus.Counter
	forcedReinits prometheus.Counter
	fetchErrors   prometheus.Counter
	syncCalls     prometheus.Counter
	inFlight      prometheus.Gauge
	windowWait    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Set {
	s := &Set{
		allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqd",
			Name:      "allocations_total",
			Help:      "Sequence numbers handed out.",
		}),
		forcedReinits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqd",
			Name:      "forced_reinits_total",
			Help:      "Forced reinitializations after a stalled reconciliation.",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqd",
			Name:      "fetch_errors_total",
			Help:      "Failed confirmed-sequence fetches.",
		}),
		syncCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqd",
			Name:      "sync_calls_total",
			Help:      "Synchronization barrier invocations that took the slow path.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seqd",
			Name:      "in_flight_gap",
			Help:      "Allocated-but-unconfirmed sequence numbers after the last allocation.",
		}),
		windowWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seqd",
			Name:      "window_wait_seconds",
			Help:      "Time allocations spent blocked on a full in-flight window.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	reg.MustRegister(s.allocations, s.forcedReinits, s.fetchErrors, s.syncCalls, s.inFlight, s.windowWait)
	return s
}

func (s *Set) RecordAllocation(inFlight uint64) {
	if s == nil {
		return
	}
	s.allocations.Inc()
	s.inFlight.Set(float64(inFlight))
}

func (s *Set) RecordForcedReinit() {
	if s == nil {
		return
	}
	s.forcedReinits.Inc()
	s.inFlight.Set(0)
}

func (s *Set) RecordFetchError() {
	if s == nil {
		return
	}
	s.fetchErrors.Inc()
}

func (s *Set) RecordSync() {
	if s == nil {
		return
	}
	s.syncCalls.Inc()
}

func (s *Set) ObserveWindowWait(d time.Duration) {
	if s == nil {
		return
	}
	s.windowWait.Observe(d.Seconds())
}
