package scanner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/obs"
	"github.com/noah-isme/kasir-api/internal/region"
)

var fastTiming = Timing{
	MinInterval: time.Millisecond,
	MaxInterval: 2 * time.Millisecond,
	MinDelay:    time.Millisecond,
	MaxDelay:    2 * time.Millisecond,
}

func seededStore(t *testing.T) *catalog.MemoryStore {
	t.Helper()
	store := catalog.NewMemoryStore()
	require.NoError(t, catalog.Seed(context.Background(), store, catalog.SeedProducts(time.Now())))
	return store
}

func receive(t *testing.T, ch <-chan Detection) Detection {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "channel closed early")
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for detection")
	}
	return Detection{}
}

func TestSimulatorEmitsActiveProductsOfRegion(t *testing.T) {
	obs.MustRegisterDomainMetrics("kasir_test", prometheus.NewRegistry())
	before := testutil.ToFloat64(obs.DetectionsTotal.WithLabelValues("uk"))

	log := NewLog(10)
	sim := NewSimulator(seededStore(t), WithTiming(fastTiming), WithLog(log))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := sim.Detections(ctx, "uk")
	require.NoError(t, err)
	for range 3 {
		d := receive(t, ch)
		require.Equal(t, "uk", d.RegionID)
		require.Contains(t, []string{"10", "11"}, d.ProductID)
		require.GreaterOrEqual(t, d.Confidence, 0.80)
		require.Less(t, d.Confidence, 1.0)
		require.NotEmpty(t, d.ID)
	}
	// At most one detection is produced ahead of the consumer.
	require.LessOrEqual(t, log.Len(), 4)
	require.GreaterOrEqual(t, testutil.ToFloat64(obs.DetectionsTotal.WithLabelValues("uk"))-before, 3.0)
}

func TestSimulatorClosesOnCancel(t *testing.T) {
	sim := NewSimulator(seededStore(t), WithTiming(Timing{MinInterval: time.Hour, MaxInterval: time.Hour}))
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := sim.Detections(ctx, "in")
	require.NoError(t, err)
	cancel()
	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSimulatorIsRestartable(t *testing.T) {
	sim := NewSimulator(seededStore(t), WithTiming(fastTiming))
	for range 2 {
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := sim.Detections(ctx, "in")
		require.NoError(t, err)
		require.Equal(t, "in", receive(t, ch).RegionID)
		cancel()
		for range ch {
		}
	}
}

func TestSimulatorSkipsEmptyRegion(t *testing.T) {
	sim := NewSimulator(catalog.NewMemoryStore(), WithTiming(fastTiming))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	ch, err := sim.Detections(ctx, "jp")
	require.NoError(t, err)
	_, ok := <-ch
	require.False(t, ok)
}

func TestSimulatorDeterministicPick(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	sim := NewSimulator(seededStore(t),
		WithTiming(fastTiming),
		WithClock(func() time.Time { return now }),
		WithRand(func() float64 { return 0.5 }, func(int) int { return 1 }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := sim.Detections(ctx, "in")
	require.NoError(t, err)
	d := receive(t, ch)
	require.Equal(t, "2", d.ProductID)
	require.InDelta(t, 0.90, d.Confidence, 1e-9)
	require.Equal(t, now, d.DetectedAt)
}

func TestSimulatorRejectsInvertedTiming(t *testing.T) {
	sim := NewSimulator(seededStore(t), WithTiming(Timing{MinInterval: time.Second}))
	_, err := sim.Detections(context.Background(), "in")
	require.Error(t, err)
}

func TestLogRecentNewestFirst(t *testing.T) {
	log := NewLog(3)
	require.Empty(t, log.Recent(0))
	for _, id := range []string{"a", "b", "c", "d"} {
		log.Record(Detection{ID: id})
	}
	require.Equal(t, 3, log.Len())
	recent := log.Recent(10)
	require.Len(t, recent, 3)
	require.Equal(t, "d", recent[0].ID)
	require.Equal(t, "b", recent[2].ID)
	require.Len(t, log.Recent(1), 1)
}

type fixedSource struct{ detections []Detection }

func (f fixedSource) Detections(_ context.Context, _ string) (<-chan Detection, error) {
	ch := make(chan Detection, len(f.detections))
	for _, d := range f.detections {
		ch <- d
	}
	close(ch)
	return ch, nil
}

func TestStreamWritesServerSentEvents(t *testing.T) {
	h := &Handler{
		Source:  fixedSource{detections: []Detection{{ID: "d1", ProductID: "1"}, {ID: "d2", ProductID: "2"}}},
		Regions: region.MustDefault(),
	}
	rec := httptest.NewRecorder()
	h.Stream(rec, httptest.NewRequest(http.MethodGet, "/api/scanner/stream?regionId=in", nil))

	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.Contains(t, body, "id: d1\nevent: detection\ndata: ")
	require.Contains(t, body, `"productId":"2"`)
	require.Equal(t, 2, strings.Count(body, "event: detection"))
}

func TestRecentHandler(t *testing.T) {
	log := NewLog(100)
	for i := range 60 {
		log.Record(Detection{ID: string(rune('A' + i%26)), Confidence: 0.9})
	}
	h := &Handler{Log: log}

	rec := httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/api/detections", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Detections []Detection `json:"detections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Detections, DefaultRecentLimit)

	rec = httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/api/detections?limit=5", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Detections, 5)
}
