package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ballot-backend/models"
)

const metricsNamespace = "ballot"

// Metrics tracks command outcomes. Everything is registered on the given
// registerer so several services can live in one process.
type Metrics struct {
	Operations    *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	VotesAccepted *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	JournalLength prometheus.Gauge
	Dropped       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operations_total",
				Help:      "Commands handled, by operation and result",
			},
			[]string{"op", "result"},
		),
		Rejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rejections_total",
				Help:      "Rejected commands, by operation and error kind",
			},
			[]string{"op", "kind"},
		),
		VotesAccepted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "votes_accepted_total",
				Help:      "Votes credited to a tally, by ballot kind",
			},
			[]string{"kind"},
		),
		Latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "operation_duration_seconds",
				Help:      "Histogram of command processing times",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"op"},
		),
		JournalLength: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "journal_blocks",
				Help:      "Number of blocks in the journal",
			},
		),
		Dropped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "notifications_dropped_total",
				Help:      "Notifications dropped because the queue was full",
			},
		),
	}
}

func (m *Metrics) observe(op models.Op, started time.Time, err error) {
	m.Latency.WithLabelValues(string(op)).Observe(time.Since(started).Seconds())

	if err != nil {
		m.Operations.WithLabelValues(string(op), "rejected").Inc()

		kind := models.KindOf(err)
		if kind == "" {
			kind = "internal"
		}
		m.Rejections.WithLabelValues(string(op), string(kind)).Inc()
		return
	}

	m.Operations.WithLabelValues(string(op), "accepted").Inc()

	switch op {
	case models.OpSubmitVote:
		m.VotesAccepted.WithLabelValues(string(models.KindCase)).Inc()
	case models.OpCastVote, models.OpRevealVote:
		m.VotesAccepted.WithLabelValues(string(models.KindElection)).Inc()
	}
}
