package obs

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var defaultLatencyBucketsMs = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// HTTPMetrics holds the request collectors used by HTTPObs.
type HTTPMetrics struct {
	Requests      *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	ResponseBytes *prometheus.HistogramVec
	InFlight      prometheus.Gauge
}

// NewHTTPMetrics registers the request collectors on reg (the default
// registerer when nil). Calling it twice with the same namespace returns the
// collectors registered first, which keeps tests and restarts idempotent.
func NewHTTPMetrics(namespace string, latencyBucketsMs []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := defaultLatencyBucketsMs
	if len(latencyBucketsMs) > 0 {
		buckets = slices.Clone(latencyBucketsMs)
		slices.Sort(buckets)
	}
	return &HTTPMetrics{
		Requests: registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"})),
		Latency: registerOrReuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"})),
		ResponseBytes: registerOrReuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response body size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(128, 4, 7),
		}, []string{"route"})),
		InFlight: registerOrReuse(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "HTTP requests currently being served.",
		})),
	}
}

// ParseBuckets reads comma separated millisecond bounds such as "5,25,100".
// Invalid, non-positive and duplicate entries are dropped.
func ParseBuckets(csv string) []float64 {
	var out []float64
	for part := range strings.SplitSeq(csv, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || v <= 0 || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// DurationMillis converts d to fractional milliseconds.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(fmt.Errorf("obs: register collector: %w", err))
}
