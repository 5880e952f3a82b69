package analytics

import (
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/kasir-api/internal/common"
)

const (
	fallbackRangeDays = 30
	maxRangeDays      = 366
)

// Window is a half-open [From, To) reporting range.
type Window struct {
	From time.Time
	To   time.Time
}

// ParseWindow reads from/to (RFC 3339 or YYYY-MM-DD) and days from q. A
// missing bound is derived from the other one and days; with neither bound the
// window ends at now.
func ParseWindow(q url.Values, now time.Time, defaultDays int) (Window, error) {
	days := defaultDays
	if days <= 0 {
		days = fallbackRangeDays
	}
	if n := common.AtoiDefault(q.Get("days"), 0); n > 0 {
		days = n
	}

	from, err := parseBound(q.Get("from"))
	if err != nil {
		return Window{}, common.ValidationError("from", "invalid from date")
	}
	to, err := parseBound(q.Get("to"))
	if err != nil {
		return Window{}, common.ValidationError("to", "invalid to date")
	}

	switch {
	case from.IsZero() && to.IsZero():
		to = now
		from = to.AddDate(0, 0, -days)
	case from.IsZero():
		from = to.AddDate(0, 0, -days)
	case to.IsZero():
		to = now
	}
	if !from.Before(to) {
		return Window{}, common.ValidationError("from", "from must be before to")
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return Window{}, common.ValidationError("from", "range exceeds one year")
	}
	return Window{From: from.UTC(), To: to.UTC()}, nil
}

func parseBound(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
