package resilience

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	// BreakerState reports 0=closed, 1=open, 2=half-open per target.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitions counts state changes.
	BreakerTransitions *prometheus.CounterVec
)

// MustRegisterMetrics registers the breaker collectors once.
func MustRegisterMetrics(namespace string, reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		BreakerState = registerCollector(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed,1=open,2=half-open",
		}, []string{"target"}))
		BreakerTransitions = registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transition_total",
			Help:      "Count of breaker state transitions",
		}, []string{"target", "from", "to"}))
	})
}

func registerCollector[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
