package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portalapi"

// CacheMetrics counts lookup cache hits and misses per cache name.
type CacheMetrics struct {
	Hits   *prometheus.CounterVec
	Misses *prometheus.CounterVec
}

// NewCacheMetrics registers cache counters on reg.
// A nil reg uses the default Prometheus registerer.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	factory := promauto.With(registererOrDefault(reg))
	return &CacheMetrics{
		Hits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of lookup cache hits.",
		}, []string{"cache"}),
		Misses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of lookup cache misses.",
		}, []string{"cache"}),
	}
}

// Hit records a cache hit for the named cache. Safe on a nil receiver.
func (m *CacheMetrics) Hit(cache string) {
	if m != nil {
		m.Hits.WithLabelValues(cache).Inc()
	}
}

// Miss records a cache miss for the named cache. Safe on a nil receiver.
func (m *CacheMetrics) Miss(cache string) {
	if m != nil {
		m.Misses.WithLabelValues(cache).Inc()
	}
}

// CredentialMetrics counts management-plane login exchanges.
type CredentialMetrics struct {
	Exchanges *prometheus.CounterVec
}

// NewCredentialMetrics registers credential counters on reg.
func NewCredentialMetrics(reg prometheus.Registerer) *CredentialMetrics {
	factory := promauto.With(registererOrDefault(reg))
	return &CredentialMetrics{
		Exchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credential",
			Name:      "exchanges_total",
			Help:      "Total number of login exchanges against the identity backend by result.",
		}, []string{"result"}), // result: success, error
	}
}

// Exchange records a login exchange outcome. Safe on a nil receiver.
func (m *CredentialMetrics) Exchange(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Exchanges.WithLabelValues(result).Inc()
}

// OnboardingMetrics counts onboarding workflow outcomes.
type OnboardingMetrics struct {
	Outcomes *prometheus.CounterVec
}

// NewOnboardingMetrics registers onboarding counters on reg.
func NewOnboardingMetrics(reg prometheus.Registerer) *OnboardingMetrics {
	factory := promauto.With(registererOrDefault(reg))
	return &OnboardingMetrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "outcomes_total",
			Help:      "Total number of onboarding workflow runs by outcome and failed step.",
		}, []string{"outcome", "step"}),
	}
}

func registererOrDefault(reg prometheus.Registerer) prometheus.Registerer {
	if reg == nil {
		return prometheus.DefaultRegisterer
	}
	return reg
}
