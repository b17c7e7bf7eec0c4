// Package metrics exposes Prometheus instruments for the chat service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthscribe_turns_total",
			Help: "Conversation turns processed, by resulting stage",
		},
		[]string{"stage"},
	)

	TurnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "healthscribe_turn_duration_seconds",
			Help:    "Time spent producing one assistant reply",
			Buckets: prometheus.DefBuckets,
		},
	)

	ResponderFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "healthscribe_responder_failures_total",
			Help: "External responder calls replaced by the fallback apology",
		},
	)

	SummariesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthscribe_summaries_total",
			Help: "Medical summaries generated, by severity",
		},
		[]string{"severity"},
	)

	MintsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthscribe_mints_total",
			Help: "Mint attempts, by result",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register adds every instrument to reg.  Only the first call has effect.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(TurnsTotal, TurnDuration, ResponderFailures, SummariesTotal, MintsTotal)
	})
}
