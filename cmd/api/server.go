package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kasir-api/internal/analytics"
	"github.com/noah-isme/kasir-api/internal/app"
	"github.com/noah-isme/kasir-api/internal/audit"
	"github.com/noah-isme/kasir-api/internal/auth"
	"github.com/noah-isme/kasir-api/internal/cart"
	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/checkout"
	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/config"
	"github.com/noah-isme/kasir-api/internal/events"
	"github.com/noah-isme/kasir-api/internal/health"
	"github.com/noah-isme/kasir-api/internal/lock"
	"github.com/noah-isme/kasir-api/internal/obs"
	"github.com/noah-isme/kasir-api/internal/payment"
	"github.com/noah-isme/kasir-api/internal/ratelimit"
	"github.com/noah-isme/kasir-api/internal/receipt"
	"github.com/noah-isme/kasir-api/internal/region"
	"github.com/noah-isme/kasir-api/internal/resilience"
	"github.com/noah-isme/kasir-api/internal/scanner"
	"github.com/noah-isme/kasir-api/internal/security"
)

// server holds the handlers and middleware mounted by routes.
type server struct {
	logger    zerolog.Logger
	regions   *region.Handler
	catalog   *catalog.Handler
	checkout  *checkout.Handler
	auth      *auth.Handler
	authMW    auth.Middleware
	cart      *cart.Handler
	scanner   *scanner.Handler
	analytics *analytics.Handler
	audit     *audit.Handler
	auditRec  audit.HTTPRecorder
	health    health.Handler
	idem      common.Idem
	authLimit ratelimit.Handler
	apiLimit  ratelimit.Handler
	bodyLimit security.BodyLimit
	headers   security.Headers
	origins   []string
	metrics   *obs.HTTPMetrics
	tracing   bool
	pprof     http.Handler
}

// serverOptions carries the observability switches read from OBS_* variables.
type serverOptions struct {
	MetricsNamespace string
	Metrics          *obs.HTTPMetrics
	Tracing          bool
	Pprof            http.Handler
}

func newServer(ctx context.Context, cfg *config.Config, deps *app.Dependencies, logger zerolog.Logger, opts serverOptions) (*server, error) {
	obs.MustRegisterDomainMetrics(opts.MetricsNamespace, nil)
	resilience.MustRegisterMetrics(opts.MetricsNamespace, nil)

	regions := region.MustDefault()
	stores := deps.Stores()

	if cfg.CatalogSeed {
		seed := func(ctx context.Context) error { return seedEmptyCatalog(ctx, stores.Catalog) }
		if deps.Redis != nil {
			locker := lock.Locker{R: deps.Redis, Prefix: "kasir:lock:"}
			if err := locker.WithLock(ctx, "catalog-seed", time.Minute, seed); err != nil {
				return nil, err
			}
		} else if err := seed(ctx); err != nil {
			return nil, err
		}
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Store:   stores.Catalog,
		Regions: regions,
		Cache:   catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	authSvc, err := auth.NewService(auth.Config{
		Store:          stores.Admins,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		return nil, err
	}

	bus := &events.Bus{Store: stores.Events}
	if deps.TaskClient != nil {
		bus.Notifiers = append(bus.Notifiers, receipt.Notifier{
			Client:   deps.TaskClient,
			Queue:    cfg.ReceiptQueue,
			MaxRetry: cfg.ReceiptMaxRetry,
			Enabled:  cfg.ReceiptsEnabled,
		})
	}

	breaker := resilience.NewBreaker(cfg.CircuitPaymentMinReq, cfg.CircuitPaymentFailRatio, cfg.CircuitPaymentOpenFor)
	payments := payment.NewGuarded(&payment.Mock{Delay: cfg.PaymentDelay}, breaker)

	checkoutSvc, err := checkout.NewService(checkout.Config{
		Products: catalogSvc,
		Ledger:   stores.Ledger,
		Regions:  regions,
		Payments: payments,
		Events:   bus,
	})
	if err != nil {
		return nil, err
	}

	detections := scanner.NewLog(cfg.DetectionLogSize)
	simulator := scanner.NewSimulator(catalogSvc,
		scanner.WithTiming(scanner.Timing{
			MinInterval: cfg.ScannerMinInterval,
			MaxInterval: cfg.ScannerMaxInterval,
			MinDelay:    cfg.ScannerMinDelay,
			MaxDelay:    cfg.ScannerMaxDelay,
		}),
		scanner.WithLog(detections),
		scanner.WithLogger(logger.With().Str("component", "scanner").Logger()),
	)

	analyticsSvc := &analytics.Service{
		Ledger:       stores.Ledger,
		R:            deps.Redis,
		TTL:          cfg.AnalyticsCacheTTL,
		DefaultRange: cfg.AnalyticsRange,
	}

	auditSvc := &audit.Service{
		Store:        stores.Audit,
		Enabled:      cfg.AuditEnabled,
		SamplingRate: cfg.AuditSamplingRate,
	}
	auditLogger := logger.With().Str("component", "audit").Logger()

	var authLimiter ratelimit.Limiter = ratelimit.StoreLimiter{Store: deps.LimiterStore}
	if deps.Redis != nil {
		authLimiter = ratelimit.SlidingRedis{Client: deps.Redis, Prefix: "kasir:rl:"}
	}

	var hsts time.Duration
	if cfg.AppEnv == "production" {
		hsts = 365 * 24 * time.Hour
	}

	s := &server{
		logger:    logger,
		regions:   &region.Handler{Registry: regions},
		catalog:   catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc}),
		checkout:  &checkout.Handler{Svc: checkoutSvc},
		auth:      &auth.Handler{Service: authSvc},
		authMW:    auth.Middleware{Service: authSvc, Disabled: !cfg.AdminAuthRequired},
		cart:      &cart.Handler{Quoter: &cart.Quoter{Products: catalogSvc, Regions: regions}},
		scanner:   &scanner.Handler{Source: simulator, Log: detections, Regions: regions},
		analytics: &analytics.Handler{Svc: analyticsSvc},
		audit:     &audit.Handler{Store: stores.Audit},
		auditRec: audit.HTTPRecorder{
			Service: auditSvc,
			OnError: func(err error) { auditLogger.Warn().Err(err).Msg("audit record failed") },
		},
		idem:      common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL},
		authLimit: ratelimit.Handler{
			Limiter: authLimiter,
			Config:  ratelimit.Config{Scope: "auth", Key: ratelimit.KeyByIP, Rate: ratelimit.Rate{Limit: cfg.AuthRateLimitMax, Window: cfg.AuthRateLimitWindow}},
		},
		apiLimit: ratelimit.Handler{
			Limiter: ratelimit.StoreLimiter{Store: deps.LimiterStore},
			Config:  ratelimit.Config{Scope: "api", Key: ratelimit.KeyByIP, Rate: ratelimit.Rate{Limit: cfg.APIRateLimitMax, Window: cfg.APIRateLimitWindow}},
		},
		bodyLimit: security.BodyLimit{Max: cfg.HTTPMaxBodyBytes},
		headers:   security.Headers{Enable: true, HSTSMaxAge: hsts, NoStore: true},
		origins:   cfg.CORSAllowedOrigins,
		metrics:   opts.Metrics,
		tracing:   opts.Tracing,
		pprof:     opts.Pprof,
	}
	if deps.DB != nil || deps.Redis != nil {
		s.health = health.Handler{Probes: health.Deps{DB: deps.DB, Redis: deps.Redis}.Probes()}
	}
	return s, nil
}

// seedEmptyCatalog loads the demo products only into an empty catalog so
// restarts never overwrite admin edits.
func seedEmptyCatalog(ctx context.Context, store catalog.Store) error {
	existing, err := store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	if err := catalog.Seed(ctx, store, catalog.SeedProducts(time.Now().UTC())); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}
