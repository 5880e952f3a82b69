package scanner

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/region"
)

const defaultHeartbeat = 15 * time.Second

// Handler serves the detection stream and the detection log.
type Handler struct {
	Source    Source
	Log       *Log
	Regions   *region.Registry
	Heartbeat time.Duration
}

// Stream handles GET /api/scanner/stream?regionId= as server-sent events.
// The stream lives until the client disconnects.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "streaming unsupported", nil)
		return
	}
	ctx := r.Context()
	reg := h.Regions.Get(r.URL.Query().Get("regionId"))
	detections, err := h.Source.Detections(ctx, reg.ID)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: 3000\n\n")
	flusher.Flush()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	logger := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case d, ok := <-detections:
			if !ok {
				return
			}
			payload, err := json.Marshal(d)
			if err != nil {
				logger.Error().Err(err).Msg("scanner: encode detection")
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: detection\ndata: %s\n\n", d.ID, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Recent handles GET /api/detections?limit=.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := common.ClampInt(common.AtoiDefault(r.URL.Query().Get("limit"), DefaultRecentLimit), 1, defaultLogCapacity)
	detections := []Detection{}
	if h.Log != nil {
		detections = h.Log.Recent(limit)
	}
	common.JSON(w, http.StatusOK, map[string]any{"detections": detections})
}
