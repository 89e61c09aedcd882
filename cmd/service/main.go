package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/fred-dashboard-service/internal/cache"
	"github.com/kjstillabower/fred-dashboard-service/internal/circuitbreaker"
	"github.com/kjstillabower/fred-dashboard-service/internal/client"
	"github.com/kjstillabower/fred-dashboard-service/internal/config"
	"github.com/kjstillabower/fred-dashboard-service/internal/dashboard"
	httphandler "github.com/kjstillabower/fred-dashboard-service/internal/http"
	"github.com/kjstillabower/fred-dashboard-service/internal/indicators"
	"github.com/kjstillabower/fred-dashboard-service/internal/lifecycle"
	"github.com/kjstillabower/fred-dashboard-service/internal/observability"
	"github.com/kjstillabower/fred-dashboard-service/internal/render"
	"github.com/kjstillabower/fred-dashboard-service/internal/service"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	fredClient, err := client.NewFREDClient(cfg.FREDAPIKey, cfg.FREDAPIURL, cfg.FREDAPITimeout)
	if err != nil {
		logger.Fatal("fred client", zap.Error(err))
	}
	if err := fredClient.CredentialStatus(); err != nil {
		logger.Warn("FRED API key unusable; dashboard will report it on every view", zap.Error(err))
	}

	var breaker *circuitbreaker.CircuitBreaker
	if cfg.CircuitBreakerEnabled {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition(from.String(), to.String(), int(to))
				logger.Warn("circuit breaker transition", zap.String("from", from.String()), zap.String("to", to.String()))
			},
		})
		fredClient.SetCircuitBreaker(breaker)
		logger.Info("circuit breaker enabled", zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold), zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	store, memcached, err := newStore(cfg)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	logger.Info("cache backend", zap.String("backend", cfg.CacheBackend))

	catalog := indicators.Default()
	seriesService := service.NewSeriesService(fredClient, store, catalog, cfg.CacheTTL)
	pipeline := dashboard.NewPipeline(catalog, seriesService, dashboard.Options{
		PreviewRows:  cfg.PreviewRows,
		HistoryYears: cfg.HistoryYears,
	})

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
	}
	if memcached != nil {
		healthConfig.CachePing = memcached.Ping
	}
	if breaker != nil {
		healthConfig.CircuitOpen = func() bool { return breaker.State() == circuitbreaker.StateOpen }
	}
	observability.RegisterRateLimitGauges(cfg.OverloadWindow)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(pipeline, seriesService, render.NewChartRenderer(cfg.ChartWidth, cfg.ChartHeight), healthConfig, logger)
	router := httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout)

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()
	stopWarming := func() {}
	if cfg.WarmCache && fredClient.CredentialStatus() == nil {
		ids := seriesIDs(catalog)
		// nil window: warm the full history, which is what the dashboard fetches.
		warmer := cache.NewCacheWarmer(seriesService, nil, logger)
		go func() {
			if err := warmer.Warm(appCtx, ids); err != nil {
				logger.Warn("initial cache warming failed", zap.Error(err))
			}
		}()
		if stop, err := warmer.Schedule(appCtx, cfg.WarmSchedule, ids); err != nil {
			logger.Error("cache warming schedule", zap.Error(err))
		} else {
			stopWarming = stop
		}
	}

	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}
	ln, err := net.Listen("tcp", ":"+cfg.ServerPort)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	go func() {
		logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.SetPhase(lifecycle.Ready)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	cancelApp()
	stopWarming()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	if memcached != nil {
		if err := memcached.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}

// newStore builds the configured cache backend. memcached is non-nil only for the
// memcached backend so callers can ping and close it.
func newStore(cfg *config.Config) (cache.Cache, *cache.MemcachedCache, error) {
	if cfg.CacheBackend == "memcached" {
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		return mc, mc, nil
	}
	return cache.NewInMemoryCache(), nil, nil
}

func seriesIDs(c *indicators.Catalog) []string {
	all := c.All()
	ids := make([]string, 0, len(all))
	for _, d := range all {
		ids = append(ids, d.SeriesID)
	}
	return ids
}
