package recommend

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the orchestrator's share of the Prometheus series named in
// SPEC_FULL.md §4.9: per-subsystem candidate counts and latencies, and
// blend composition. The RPC queue depth/latency series live next to the
// bus that produces them (internal/messaging), and the embedding cache
// hit ratio lives next to the cache (internal/embedding), rather than
// being funneled back through this struct.
type Metrics struct {
	GeneratorCandidates *prometheus.GaugeVec
	GeneratorLatency    *prometheus.HistogramVec
	BlendComposition    *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		GeneratorCandidates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "recommend_generator_candidates",
			Help: "Number of candidates returned by the last run of a subsystem, per user request.",
		}, []string{"subsystem"}),
		GeneratorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recommend_generator_latency_seconds",
			Help:    "Latency of each candidate generator's run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"subsystem"}),
		BlendComposition: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "recommend_blend_composition_fraction",
			Help: "Fraction of the final blended list contributed by each subsystem.",
		}, []string{"subsystem"}),
	}

	for _, collector := range []prometheus.Collector{m.GeneratorCandidates, m.GeneratorLatency, m.BlendComposition} {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}

	return m
}

func (m *Metrics) ObserveGenerator(subsystem string, candidateCount int, latencySeconds float64) {
	m.GeneratorCandidates.WithLabelValues(subsystem).Set(float64(candidateCount))
	m.GeneratorLatency.WithLabelValues(subsystem).Observe(latencySeconds)
}

func (m *Metrics) ObserveBlendComposition(counts map[string]int, total int) {
	if total == 0 {
		return
	}
	for subsystem, count := range counts {
		m.BlendComposition.WithLabelValues(subsystem).Set(float64(count) / float64(total))
	}
}
