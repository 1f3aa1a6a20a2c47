package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat completion flow.
type ChatMetrics struct {
	completionsTotal   *prometheus.CounterVec
	completionLatency  *prometheus.HistogramVec
	probesTotal        *prometheus.CounterVec
	invalidationsTotal prometheus.Counter
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		completionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geminichat",
			Subsystem: "chat",
			Name:      "completions_total",
			Help:      "Total chat completions by outcome",
		}, []string{"outcome"}),
		completionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geminichat",
			Subsystem: "chat",
			Name:      "completion_latency_seconds",
			Help:      "Latency of chat completions including persistence",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"model"}),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geminichat",
			Subsystem: "models",
			Name:      "probes_total",
			Help:      "Total model availability probes",
		}, []string{"model", "status"}),
		invalidationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geminichat",
			Subsystem: "models",
			Name:      "cache_invalidations_total",
			Help:      "Times the cached model handle was dropped after a model or quota failure",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.completionsTotal, m.completionLatency, m.probesTotal, m.invalidationsTotal)
	return m
}

func (m *ChatMetrics) ObserveCompletion(outcome, model string, seconds float64) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(outcome).Inc()
	if model == "" {
		model = "none"
	}
	m.completionLatency.WithLabelValues(model).Observe(seconds)
}

func (m *ChatMetrics) ObserveProbe(model string, ok bool) {
	if m == nil {
		return
	}
	status := "failed"
	if ok {
		status = "ok"
	}
	m.probesTotal.WithLabelValues(model, status).Inc()
}

func (m *ChatMetrics) ObserveInvalidation() {
	if m == nil {
		return
	}
	m.invalidationsTotal.Inc()
}
