package scanner

import (
	"sync"
	"time"
)

const (
	defaultLogCapacity = 500
	// DefaultRecentLimit is the page size of Log.Recent when limit is not positive.
	DefaultRecentLimit = 50
)

// Detection is one simulated product identification.
type Detection struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	RegionID    string    `json:"regionId"`
	Confidence  float64   `json:"confidence"`
	DetectedAt  time.Time `json:"detectedAt"`
}

// Log keeps the most recent detections in a bounded ring.
type Log struct {
	mu      sync.RWMutex
	entries []Detection
	next    int
	full    bool
}

// NewLog returns a log that retains up to capacity detections.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = defaultLogCapacity
	}
	return &Log{entries: make([]Detection, capacity)}
}

// Record appends d, evicting the oldest entry when full.
func (l *Log) Record(d Detection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = d
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

// Len returns the number of retained detections.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// Recent returns up to limit detections, newest first.
func (l *Log) Recent(limit int) []Detection {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	size := l.next
	if l.full {
		size = len(l.entries)
	}
	limit = min(limit, size)
	out := make([]Detection, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.entries)) % len(l.entries)
		out = append(out, l.entries[idx])
	}
	return out
}
