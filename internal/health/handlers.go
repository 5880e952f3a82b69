package health

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/noah-isme/kasir-api/internal/common"
)

var draining atomic.Bool

// SetReady flips readiness. main clears it on SIGTERM so the balancer stops
// routing before the listener closes.
func SetReady(v bool) { draining.Store(!v) }

// Report is the readiness body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	Probes []Probe
}

// Live answers as long as the process can serve HTTP.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe concurrently and answers 503 if any fails or the
// process is draining.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "draining"})
		return
	}

	results := make([]error, len(h.Probes))
	var wg sync.WaitGroup
	for i, p := range h.Probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.run(r.Context())
		}()
	}
	wg.Wait()

	report := Report{Status: "ok", Checks: make(map[string]string, len(h.Probes))}
	for i, p := range h.Probes {
		if err := results[i]; err != nil {
			report.Status = "degraded"
			report.Checks[p.Name] = err.Error()
			continue
		}
		report.Checks[p.Name] = "ok"
	}
	code := http.StatusOK
	if report.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, report)
}
