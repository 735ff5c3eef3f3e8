package twofa

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "pki2fa"

// Metrics holds the service counters and the registry they are exposed from.
type Metrics struct {
	registry *prometheus.Registry

	codesGenerated  prometheus.Counter
	verifications   *prometheus.CounterVec
	seedDecryptions *prometheus.CounterVec
	rateLimited     prometheus.Counter
}

// NewMetrics registers the service collectors plus Go runtime and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		codesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "codes_generated_total",
			Help:      "TOTP codes generated.",
		}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verifications_total",
			Help:      "TOTP verification attempts by result.",
		}, []string{"result"}),
		seedDecryptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "seed_decryptions_total",
			Help:      "Seed decryption attempts by result.",
		}, []string{"result"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limited_total",
			Help:      "Verification requests rejected by the rate limiter.",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) codeGenerated() {
	m.codesGenerated.Inc()
}

func (m *Metrics) verified(ok bool) {
	m.verifications.WithLabelValues(resultLabel(ok, "valid", "invalid")).Inc()
}

func (m *Metrics) seedDecrypted(ok bool) {
	m.seedDecryptions.WithLabelValues(resultLabel(ok, "ok", "error")).Inc()
}

func resultLabel(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
