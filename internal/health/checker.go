package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

const (
	defaultDBTimeout    = 500 * time.Millisecond
	defaultRedisTimeout = 300 * time.Millisecond
)

// Probe is one named readiness check bounded by Timeout.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

func (p Probe) run(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Check(ctx)
}

// Deps holds the backends the api may run against. A nil member is absent,
// not unhealthy: the api serves from in-memory stores without it.
type Deps struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

// Probes returns a probe per configured backend.
func (d Deps) Probes() []Probe {
	var probes []Probe
	if d.DB != nil {
		probes = append(probes, Probe{Name: "db", Timeout: defaultDBTimeout, Check: d.DB.Ping})
	}
	if d.Redis != nil {
		probes = append(probes, Probe{
			Name:    "redis",
			Timeout: defaultRedisTimeout,
			Check:   func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() },
		})
	}
	return probes
}
