package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/freshmart/storefront/internal/cart"
	"github.com/freshmart/storefront/internal/checkout"
	"github.com/freshmart/storefront/internal/config"
	"github.com/freshmart/storefront/internal/health"
	"github.com/freshmart/storefront/internal/lock"
	"github.com/freshmart/storefront/internal/obs"
	"github.com/freshmart/storefront/internal/pricing"
	"github.com/freshmart/storefront/internal/ratelimit"
	"github.com/freshmart/storefront/internal/resilience"
	"github.com/freshmart/storefront/internal/security"
	"github.com/freshmart/storefront/internal/storeapi"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "storefront")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)
	httpMetrics := obs.NewHTTPMetrics(metricsNamespace, nil, nil)

	if envBool("OBS_ENABLE_TRACING", true) {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "storefront-bff",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	apiClient := &storeapi.Client{
		BaseURL: cfg.StoreAPIBaseURL,
		HTTP: resilience.HTTPClient{
			Client: &http.Client{
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			Breaker:     resilience.NewBreaker("store-api", 10, 0.5, 30*time.Second).WithLogger(logger),
			MaxAttempts: cfg.UpstreamMaxAttempts,
			BaseBackoff: 100 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     cfg.UpstreamTimeout,
		},
		Cache: storeapi.NewCache(redisClient, cfg.UpstreamCacheTTL),
		Log:   logger.With().Str("component", "storeapi").Logger(),
	}

	cartStore := &cart.Store{
		Port:  cart.RedisPort{Client: redisClient, TTL: cfg.CartTTL, Log: logger},
		Mutex: lock.Locker{Client: redisClient},
		Log:   logger.With().Str("component", "cart").Logger(),
	}
	viewer := &cart.Viewer{
		Store: cartStore,
		Reconciler: cart.Reconciler{
			Fetcher:     apiClient,
			MaxInFlight: cfg.ReconcileMaxFetches,
			Log:         logger,
		},
		Pricing:  apiClient,
		Discount: pricing.ThresholdPercent{Threshold: cfg.DiscountThreshold, Percent: cfg.DiscountPercent},
		Fallback: pricing.FallbackTier{FreeOver: cfg.FallbackFreeOver, FlatFee: cfg.FallbackFlatFee},
		Log:      logger,
	}
	cartHandler := &cart.Handler{Viewer: viewer}
	checkoutHandler := &checkout.Handler{Svc: &checkout.Service{
		Viewer:    viewer,
		Submitter: apiClient,
		Validate:  validator.New(),
		Log:       logger.With().Str("component", "checkout").Logger(),
	}}
	healthHandler := health.Handler{Checker: probes{redis: redisClient, api: apiClient}}

	limiterMiddleware := func(next http.Handler) http.Handler { return next }
	if lim, err := ratelimit.New(redisClient, cfg.RateLimit); err != nil {
		logger.Error().Err(err).Msg("initialise rate limiter")
	} else {
		limiterMiddleware = ratelimit.Handler{
			Limiter: lim,
			OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter degraded") },
		}.Middleware
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.TracingMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(limiterMiddleware)
		r.Route("/cart", cartHandler.Routes)
		r.Route("/checkout", checkoutHandler.Routes)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("storefront bff listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("storefront bff stopped")
}

// probes adapts the process dependencies to the health checker.
type probes struct {
	redis *redis.Client
	api   *storeapi.Client
}

func (p probes) PingRedis(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.redis.Ping(ctx).Err()
}

func (p probes) PingStoreAPI(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := p.api.ShippingRates(ctx)
	return err
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
