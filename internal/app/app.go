// Package app wires the rewards API server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	"github.com/xenking/outlet-rewards/internal/domain/cart"
	"github.com/xenking/outlet-rewards/internal/domain/order"
	"github.com/xenking/outlet-rewards/internal/handler"
	"github.com/xenking/outlet-rewards/internal/storage/postgres"
	"github.com/xenking/outlet-rewards/pkg/health"
	"github.com/xenking/outlet-rewards/pkg/httpmiddleware"
)

const serviceName = "rewards-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	var limits limiter.Store
	if cfg.RateLimit.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		if limits, err = httpmiddleware.NewRedisStore(rdb); err != nil {
			return errors.Wrap(err, "create rate limit store")
		}
		healthSvc.AddReadinessCheck("redis", time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	api, err := newAPI(pool, m, cfg, limits, healthSvc, zctx.From(ctx))
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           api,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newAPI builds the services over pool and returns the fully wrapped HTTP
// handler.
func newAPI(
	pool *pgxpool.Pool,
	t httpmiddleware.TelemetryProvider,
	cfg *Config,
	limits limiter.Store,
	probes *health.Health,
	lg *zap.Logger,
) (http.Handler, error) {
	// Repositories.
	products := postgres.NewProductRepository(pool)
	vouchers := postgres.NewVoucherRepository(pool)
	carts := postgres.NewCartStore(pool)
	orders := postgres.NewOrderRepository(pool)
	ledger := postgres.NewWalletLedger(pool)

	// Domain services.
	policy := cfg.Loyalty.PointsPolicy()
	cartService := cart.NewService(carts, products, vouchers, ledger, policy)
	orderService, err := order.NewService(cartService, orders, policy,
		t.MeterProvider().Meter(serviceName),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	h := handler.NewHandler(cartService, orderService, products)

	return httpmiddleware.Wrap(newRouter(h, probes),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Retry-After"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Store:  limits,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument(serviceName, t),
		httpmiddleware.LogRequests(),
	), nil
}

// newRouter serves the probes next to the API routes.
func newRouter(h *handler.Handler, probes *health.Health) http.Handler {
	r := chi.NewRouter()
	r.Get("/livez", probes.LiveEndpoint)
	r.Get("/readyz", probes.ReadyEndpoint)
	r.Mount("/api", h.Routes())
	return r
}
