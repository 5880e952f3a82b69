package scanner

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/obs"
)

// Source produces product identifications for a region. Each call starts an
// independent sequence with at most one detection in flight; the channel is
// closed once ctx is cancelled.
type Source interface {
	Detections(ctx context.Context, regionID string) (<-chan Detection, error)
}

// ProductLister returns the products a detection may pick from.
type ProductLister interface {
	ListActive(ctx context.Context, regionID string) ([]catalog.Product, error)
}

// Timing bounds the random waits of one detection cycle.
type Timing struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// DefaultTiming waits 5-8s before "seeing" a product and 2-4s to identify it.
func DefaultTiming() Timing {
	return Timing{
		MinInterval: 5 * time.Second,
		MaxInterval: 8 * time.Second,
		MinDelay:    2 * time.Second,
		MaxDelay:    4 * time.Second,
	}
}

const (
	minConfidence = 0.80
	maxConfidence = 1.0
)

// Simulator is a Source that picks random active products on a timer.
type Simulator struct {
	products   ProductLister
	timing     Timing
	log        *Log
	logger     zerolog.Logger
	now        func() time.Time
	randFloat  func() float64
	randIntN   func(int) int
	confidence metric.Float64Histogram
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) Option { return func(s *Simulator) { s.timing = t } }

// WithLog records every detection in l.
func WithLog(l *Log) Option { return func(s *Simulator) { s.log = l } }

// WithLogger sets the logger used for catalog failures.
func WithLogger(l zerolog.Logger) Option { return func(s *Simulator) { s.logger = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Simulator) { s.now = now } }

// WithRand replaces the random sources; both must be safe for concurrent use.
func WithRand(float64Fn func() float64, intNFn func(int) int) Option {
	return func(s *Simulator) {
		s.randFloat = float64Fn
		s.randIntN = intNFn
	}
}

// NewSimulator builds a Simulator over products.
func NewSimulator(products ProductLister, opts ...Option) *Simulator {
	s := &Simulator{
		products:  products,
		timing:    DefaultTiming(),
		logger:    zerolog.Nop(),
		now:       time.Now,
		randFloat: rand.Float64,
		randIntN:  rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	hist, err := otel.Meter("github.com/noah-isme/kasir-api/internal/scanner").Float64Histogram(
		"scanner.detection.confidence",
		metric.WithDescription("Confidence of simulated detections."),
	)
	if err == nil {
		s.confidence = hist
	}
	return s
}

// Detections implements Source. Nothing runs until it is called.
func (s *Simulator) Detections(ctx context.Context, regionID string) (<-chan Detection, error) {
	if s.products == nil {
		return nil, errors.New("scanner: product lister is required")
	}
	if s.timing.MaxInterval < s.timing.MinInterval || s.timing.MaxDelay < s.timing.MinDelay {
		return nil, errors.New("scanner: timing bounds are inverted")
	}
	out := make(chan Detection)
	go s.run(ctx, regionID, out)
	return out, nil
}

func (s *Simulator) run(ctx context.Context, regionID string, out chan<- Detection) {
	defer close(out)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		if !s.wait(ctx, timer, s.between(s.timing.MinInterval, s.timing.MaxInterval)) {
			return
		}
		if !s.wait(ctx, timer, s.between(s.timing.MinDelay, s.timing.MaxDelay)) {
			return
		}
		d, ok := s.detect(ctx, regionID)
		if !ok {
			continue
		}
		select {
		case out <- d:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Simulator) detect(ctx context.Context, regionID string) (Detection, bool) {
	products, err := s.products.ListActive(ctx, regionID)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn().Err(err).Str("region_id", regionID).Msg("scanner: list products failed")
		}
		return Detection{}, false
	}
	if len(products) == 0 {
		return Detection{}, false
	}
	p := products[s.randIntN(len(products))]
	d := Detection{
		ID:          newID(),
		ProductID:   p.ID,
		ProductName: p.Name,
		RegionID:    p.RegionID,
		Confidence:  minConfidence + s.randFloat()*(maxConfidence-minConfidence),
		DetectedAt:  s.now().UTC(),
	}
	if s.log != nil {
		s.log.Record(d)
	}
	if obs.DetectionsTotal != nil {
		obs.DetectionsTotal.WithLabelValues(d.RegionID).Inc()
	}
	if s.confidence != nil {
		s.confidence.Record(ctx, d.Confidence, metric.WithAttributes(attribute.String("region", d.RegionID)))
	}
	return d, true
}

func (s *Simulator) wait(ctx context.Context, timer *time.Timer, d time.Duration) bool {
	timer.Reset(d)
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		timer.Stop()
		return false
	}
}

func (s *Simulator) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.randFloat()*float64(hi-lo))
}

func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
