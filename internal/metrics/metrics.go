package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the relay's Prometheus instruments.
type Metrics struct {
	CapturesReceived  prometheus.Counter
	CapturesRejected  prometheus.Counter
	CapturesReplaced  prometheus.Counter
	AnalysesCompleted prometheus.Counter
	AnalysesFailed    prometheus.Counter
	PersistFailures   prometheus.Counter
	CommandsForwarded prometheus.Counter
	CommandsRejected  prometheus.Counter
	Subscribers       prometheus.Gauge
	AnalysesInFlight  prometheus.Gauge
	ProviderLatency   prometheus.Histogram
}

// New registers all relay instruments on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CapturesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_captures_received_total",
			Help: "Capture events accepted by the ingestor.",
		}),
		CapturesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_captures_rejected_total",
			Help: "Capture submissions rejected before dispatch.",
		}),
		CapturesReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_captures_replaced_total",
			Help: "Pending captures superseded by a newer frame for the same source.",
		}),
		AnalysesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_analyses_completed_total",
			Help: "Analyses that produced a stored result.",
		}),
		AnalysesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_analyses_failed_total",
			Help: "Analyses abandoned after exhausting the retry budget or on permanent provider errors.",
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_persist_failures_total",
			Help: "Result store appends that failed.",
		}),
		CommandsForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_commands_forwarded_total",
			Help: "Commands forwarded to the actuator sink.",
		}),
		CommandsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_commands_rejected_total",
			Help: "Commands rejected before reaching the actuator sink.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_subscribers",
			Help: "Currently connected console subscribers.",
		}),
		AnalysesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_analyses_in_flight",
			Help: "Provider calls currently executing across all sources.",
		}),
		ProviderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_provider_latency_seconds",
			Help:    "Latency of vision provider calls, including failed attempts.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}

	reg.MustRegister(
		m.CapturesReceived, m.CapturesRejected, m.CapturesReplaced,
		m.AnalysesCompleted, m.AnalysesFailed, m.PersistFailures,
		m.CommandsForwarded, m.CommandsRejected,
		m.Subscribers, m.AnalysesInFlight, m.ProviderLatency,
	)

	return m
}

// NewNop returns metrics registered on a throwaway registry. Used in tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
