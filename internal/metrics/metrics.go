package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codeduel"

// Metrics holds the service's prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	LobbiesCreated  prometheus.Counter
	ActiveLobbies   prometheus.Gauge
	Connections     prometheus.Gauge
	MatchesStarted  prometheus.Counter
	MatchesFinished *prometheus.CounterVec
	Submissions     *prometheus.CounterVec
	GradeDuration   prometheus.Histogram
	Attacks         *prometheus.CounterVec
	RelayMessages   *prometheus.CounterVec
	MessagesDropped *prometheus.CounterVec
	DirectoryErrors *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LobbiesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lobbies_created_total",
			Help:      "Lobbies created.",
		}),
		ActiveLobbies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lobbies_active",
			Help:      "Lobbies currently held in the lobby store.",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open WebSocket connections.",
		}),
		MatchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_started_total",
			Help:      "Matches moved to playing.",
		}),
		MatchesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_finished_total",
			Help:      "Matches moved to finished, by reason.",
		}, []string{"reason"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Graded submissions, by outcome.",
		}, []string{"outcome"}),
		GradeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grade_duration_seconds",
			Help:      "Time spent in the grading collaborator.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		Attacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attacks_total",
			Help:      "Attacks sent, by type.",
		}, []string{"type"}),
		RelayMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_messages_total",
			Help:      "Spectator relay messages, by kind.",
		}, []string{"kind"}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Outbound messages dropped, by stage.",
		}, []string{"stage"}),
		DirectoryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_errors_total",
			Help:      "Failed directory writes, by operation.",
		}, []string{"op"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.LobbiesCreated,
		m.ActiveLobbies,
		m.Connections,
		m.MatchesStarted,
		m.MatchesFinished,
		m.Submissions,
		m.GradeDuration,
		m.Attacks,
		m.RelayMessages,
		m.MessagesDropped,
		m.DirectoryErrors,
	)
	return m
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
