package obs

import (
	"net/http"
	"strconv"
	"time"
)

// StatusRecorder captures the status code and body size of a response.
type StatusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	bytes       int64
}

// NewStatusRecorder wraps w. The status defaults to 200 until a handler sets one.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (sr *StatusRecorder) WriteHeader(code int) {
	if !sr.wroteHeader {
		sr.status = code
		sr.wroteHeader = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *StatusRecorder) Write(p []byte) (int, error) {
	sr.wroteHeader = true
	n, err := sr.ResponseWriter.Write(p)
	sr.bytes += int64(n)
	return n, err
}

// Status returns the response status code.
func (sr *StatusRecorder) Status() int { return sr.status }

// BytesWritten returns the response body size so far.
func (sr *StatusRecorder) BytesWritten() int64 { return sr.bytes }

// Flush keeps server-sent event streams working through the recorder.
func (sr *StatusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (sr *StatusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// HTTPObs records Prometheus request metrics labelled by chi route.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := NewStatusRecorder(w)
		o.Metrics.InFlight.Inc()
		defer o.Metrics.InFlight.Dec()

		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := DurationMillis(time.Since(start))

		// Unmatched paths share one label to keep cardinality bounded.
		route := Route(r, "unmatched")
		o.Metrics.Requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status())).Inc()
		o.Metrics.Latency.WithLabelValues(r.Method, route).Observe(elapsed)
		o.Metrics.ResponseBytes.WithLabelValues(route).Observe(float64(rec.BytesWritten()))
	})
}
