package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kjstillabower/fred-dashboard-service/internal/models"
	"github.com/kjstillabower/fred-dashboard-service/internal/observability"
)

// SeriesFetcher is implemented by the service layer. Used by CacheWarmer to avoid a
// circular dependency on the service package.
type SeriesFetcher interface {
	GetSeries(ctx context.Context, seriesID string, window models.DateRange) (models.ObservationSeries, error)
}

// CacheWarmer prefetches series so the first dashboard view after a refresh is a cache hit.
type CacheWarmer struct {
	fetcher SeriesFetcher
	window  func() models.DateRange
	logger  *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer. window is evaluated on every run, so a
// rolling default range stays aligned with what the dashboard requests.
func NewCacheWarmer(fetcher SeriesFetcher, window func() models.DateRange, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window == nil {
		window = func() models.DateRange { return models.DateRange{} }
	}
	return &CacheWarmer{fetcher: fetcher, window: window, logger: logger}
}

// Warm fetches each series in turn. Fetches run one at a time so warming never
// puts more than one request in flight against FRED.
func (w *CacheWarmer) Warm(ctx context.Context, seriesIDs []string) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	window := w.window()
	w.logger.Info("warming cache", zap.Int("series", len(seriesIDs)), zap.Stringer("window", window))

	var errs []error
	for _, id := range seriesIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := w.fetcher.GetSeries(ctx, id, window); err != nil {
			errs = append(errs, fmt.Errorf("warm %s: %w", id, err))
		}
	}

	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("cache warming complete", zap.Int("series", len(seriesIDs)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}

// Schedule runs Warm on a cron spec (standard five fields or descriptors like "@every 30m")
// until ctx is done. A run still in progress when the next one is due is skipped.
// The returned stop func waits for a running warm to finish.
func (w *CacheWarmer) Schedule(ctx context.Context, spec string, seriesIDs []string) (stop func(), err error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = c.AddFunc(spec, func() {
		if err := w.Warm(ctx, seriesIDs); err != nil {
			w.logger.Warn("scheduled cache warm failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("warm schedule %q: %w", spec, err)
	}
	c.Start()
	w.logger.Info("cache warming scheduled", zap.String("schedule", spec))
	return func() { <-c.Stop().Done() }, nil
}
