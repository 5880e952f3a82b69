package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/kasir-api/internal/audit"
	"github.com/noah-isme/kasir-api/internal/auth"
	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/config"
	"github.com/noah-isme/kasir-api/internal/ledger"
)

func TestNewDependenciesInMemory(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret"}
	deps, err := NewDependencies(context.Background(), cfg, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	require.Nil(t, deps.DB)
	require.Nil(t, deps.Redis)
	require.Nil(t, deps.TaskClient)
	require.NotNil(t, deps.LimiterStore)

	stores := deps.Stores()
	require.IsType(t, &catalog.MemoryStore{}, stores.Catalog)
	require.IsType(t, &ledger.MemoryStore{}, stores.Ledger)
	require.IsType(t, &auth.MemoryStore{}, stores.Admins)
	require.Nil(t, stores.Events)
	require.IsType(t, &audit.MemoryStore{}, stores.Audit)
}

func TestNewDependenciesWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		JWTSecret:       "secret",
		RedisURL:        "redis://" + mr.Addr() + "/0",
		ReceiptsEnabled: true,
	}
	deps, err := NewDependencies(context.Background(), cfg, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	require.NotNil(t, deps.Redis)
	require.NotNil(t, deps.TaskClient)

	ctx, err := deps.LimiterStore.Get(context.Background(), "login:1.2.3.4", limiterRate())
	require.NoError(t, err)
	require.EqualValues(t, 4, ctx.Remaining)
}

func TestNewRedisFailsOnUnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewRedis(context.Background(), "redis://"+addr, false, zerolog.Nop())
	require.Error(t, err)
}

func limiterRate() limiter.Rate {
	return limiter.Rate{Period: time.Minute, Limit: 5}
}
