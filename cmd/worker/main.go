package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/config"
	"github.com/noah-isme/kasir-api/internal/obs"
	"github.com/noah-isme/kasir-api/internal/receipt"
	"github.com/noah-isme/kasir-api/internal/region"
	"github.com/noah-isme/kasir-api/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(obs.LogConfig{
		Format:  envOrDefault("OBS_LOG_FORMAT", "json"),
		Level:   envOrDefault("OBS_LOG_LEVEL", "info"),
		Service: "kasir-worker",
	})

	if cfg.RedisURL == "" {
		logger.Fatal().Msg("REDIS_URL is required for the receipt worker")
	}
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "kasir"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := envOrDefault("WORKER_METRICS_ADDR", ""); addr != "" {
		go serveMetrics(ctx, addr, logger)
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    max(cfg.WorkerConcurrency, 1),
		Queues:         map[string]int{cfg.ReceiptQueue: 1},
		RetryDelayFunc: retryDelay(cfg.RetryBase, cfg.RetryJitterPct),
		Logger:         asynqLogger{logger: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn().Err(err).Str("type", task.Type()).Int("retry", retried).Int("max_retry", maxRetry).Msg("task failed")
		}),
		ShutdownTimeout: 10 * time.Second,
	})

	mux := asynq.NewServeMux()
	worker := &receipt.Worker{
		Mail:    common.LogEmailSender{Logger: logger},
		Regions: region.MustDefault(),
		Logger:  logger,
	}
	worker.Register(mux)

	logger.Info().Str("queue", cfg.ReceiptQueue).Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// retryDelay spaces receipt retries with exponential backoff and jitter.
func retryDelay(base time.Duration, jitterPct float64) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		return resilience.Backoff(base, n+1, jitterPct)
	}
}

func serveMetrics(ctx context.Context, addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}

// asynqLogger adapts zerolog to asynq.Logger.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
