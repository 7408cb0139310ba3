// Package app bootstraps the process-wide dependencies of a service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/config"
	"surveyhub-backend/shared/database"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/logger"
	"surveyhub-backend/shared/metrics"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/telemetry"
	"surveyhub-backend/shared/utils/cache"
)

type App struct {
	Name    string
	Config  *config.Config
	Log     *zap.Logger
	DB      *gorm.DB
	Cache   *cache.CacheManager
	Stores  *store.Stores
	Metrics *metrics.Metrics

	opts            Options
	shutdownTracing func(context.Context) error
	closers         []func() error
	checks          map[string]httpx.Check
}

// Options selects which dependencies Bootstrap opens.
type Options struct {
	Database bool
	Cache    bool
}

// Bootstrap loads configuration and opens the requested dependencies. A
// missing Redis is logged and tolerated; a missing database is fatal.
func Bootstrap(ctx context.Context, name string, opts Options) (*App, error) {
	config.LoadConfig()
	cfg := config.GetConfig()

	log, err := logger.New(name, cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a := &App{Name: name, Config: cfg, Log: log, Metrics: metrics.NewMetrics(), opts: opts}

	a.shutdownTracing, err = telemetry.Setup(ctx, name, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}

	if opts.Database {
		a.DB, err = database.InitDatabase(cfg, log)
		if err != nil {
			return nil, err
		}
		a.Stores = store.NewStores(a.DB)
	}

	if opts.Cache {
		client, err := cache.NewClient(ctx, cfg)
		if err != nil {
			log.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			a.Cache = cache.New(client, log)
		}
	}
	return a, nil
}

// Router returns a gin engine with the shared middleware stack and the
// /health and /metrics endpoints installed.
func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpx.RequestID())
	if a.Config.OTLPEndpoint != "" {
		router.Use(otelgin.Middleware(a.Name))
	}
	router.Use(logger.RequestLogger(a.Log))
	router.Use(a.Metrics.Middleware(a.Name))

	router.GET("/health", httpx.Health(a.Name, a.HealthChecks()))
	router.GET("/metrics", metrics.Handler())
	return router
}

// HealthChecks returns checks for the dependencies this app requested. A
// requested but unreachable Redis reports down.
func (a *App) HealthChecks() map[string]httpx.Check {
	checks := map[string]httpx.Check{}
	if a.DB != nil {
		checks["database"] = func(context.Context) error { return database.Ping(a.DB) }
	}
	if a.opts.Cache {
		checks["cache"] = func(ctx context.Context) error { return a.Cache.Ping(ctx) }
	}
	for name, check := range a.checks {
		checks[name] = check
	}
	return checks
}

// AddCheck registers an extra /health check. Call it before Router.
func (a *App) AddCheck(name string, check httpx.Check) {
	if a.checks == nil {
		a.checks = map[string]httpx.Check{}
	}
	a.checks[name] = check
}

// Authenticator builds the session manager and the request authenticator
// for the configured provider. Requires the database.
func (a *App) Authenticator() (*auth.Authenticator, *auth.SessionManager, error) {
	if a.Stores == nil {
		return nil, nil, errors.New("authenticator requires the database")
	}
	sessions, err := auth.NewSessionManager(a.Config.SessionSecret, a.Config.SessionTTL)
	if err != nil {
		return nil, nil, err
	}
	provider, err := auth.NewProvider(a.Config, sessions)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, provider.Close)
	authn := auth.NewAuthenticator(provider, a.Stores.Users, a.Cache, a.Config.SessionCookieName, a.Log).
		WithImpersonations(a.Stores.Impersonations)
	return authn, sessions, nil
}

// Run serves handler on addr until SIGINT or SIGTERM, then drains.
func (a *App) Run(addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("service starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving %s: %w", addr, err)
		}
		return nil
	case sig := <-quit:
		a.Log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Close releases every dependency in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.DB != nil {
		_ = database.CloseDatabase(a.DB)
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.shutdownTracing(ctx)
	}
	_ = a.Log.Sync()
}
