package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/kasir-api/internal/app"
	"github.com/noah-isme/kasir-api/internal/config"
	"github.com/noah-isme/kasir-api/internal/health"
	"github.com/noah-isme/kasir-api/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(obs.LogConfig{
		Format:  envOrDefault("OBS_LOG_FORMAT", "json"),
		Level:   envOrDefault("OBS_LOG_LEVEL", "info"),
		Service: "kasir-api",
	}).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "kasir-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "kasir")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	deps, err := app.NewDependencies(startCtx, cfg, app.Options{
		ApplicationName: "kasir-api",
		Migrate:         envBool("DB_AUTO_MIGRATE", true),
		RedisMetrics:    metricsEnabled,
		Logger:          logger,
	})
	if err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close dependencies")
		}
	}()

	opts := serverOptions{MetricsNamespace: metricsNamespace, Tracing: tracingEnabled}
	if metricsEnabled {
		buckets := obs.ParseBuckets(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		opts.Metrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		opts.Pprof = protectPprof(newPprofMux(),
			envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", ""),
			envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", ""))
	}

	srvState, err := newServer(startCtx, cfg, deps, logger, opts)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise server")
	}

	var handler http.Handler = srvState.routes()
	if tracingEnabled {
		handler = otelhttp.NewHandler(handler, "http.server")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Bool("postgres", cfg.UsesPostgres()).Bool("redis", cfg.UsesRedis()).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), envDurationMillis("HTTP_SHUTDOWN_TIMEOUT_MS", 15000))
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

// protectPprof requires basic auth when credentials are configured.
func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
