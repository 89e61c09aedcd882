package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/fred-dashboard-service/internal/cache"
	"github.com/kjstillabower/fred-dashboard-service/internal/client"
	"github.com/kjstillabower/fred-dashboard-service/internal/indicators"
	"github.com/kjstillabower/fred-dashboard-service/internal/models"
	"github.com/kjstillabower/fred-dashboard-service/internal/observability"
)

// DefaultTTL is how long a fetched series is reused before FRED is asked again.
const DefaultTTL = time.Hour

// SeriesService fetches observation series through a cache-aside layer.
// Identical concurrent misses share one upstream call.
type SeriesService struct {
	client  client.ObservationsClient
	cache   cache.Cache
	catalog *indicators.Catalog
	ttl     time.Duration
	group   singleflight.Group
	now     func() time.Time
}

// NewSeriesService creates a SeriesService. Only series in catalog can be fetched.
// A non-positive ttl uses DefaultTTL.
func NewSeriesService(c client.ObservationsClient, store cache.Cache, catalog *indicators.Catalog, ttl time.Duration) *SeriesService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SeriesService{
		client:  c,
		cache:   store,
		catalog: catalog,
		ttl:     ttl,
		now:     time.Now,
	}
}

// CredentialStatus reports whether the upstream client has a usable API key.
func (s *SeriesService) CredentialStatus() error {
	return s.client.CredentialStatus()
}

// GetSeries returns the cleaned series for seriesID within window. The id is resolved
// against the catalog first; unknown ids fail with indicators.ErrUnknownIndicator and
// never reach the network.
func (s *SeriesService) GetSeries(ctx context.Context, seriesID string, window models.DateRange) (models.ObservationSeries, error) {
	desc, err := s.catalog.Lookup(seriesID)
	if err != nil {
		return models.ObservationSeries{}, err
	}
	key := cache.Key{SeriesID: desc.SeriesID, Window: window}
	logger := observability.LoggerFromContext(ctx)
	start := s.now()

	if entry, ok := s.lookup(ctx, key, logger); ok {
		logger.Debug("series served", zap.String("series", key.SeriesID), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
		return entry.Series, nil
	}

	// The shared fetch outlives any single caller's cancellation; the client timeout bounds it.
	v, err, shared := s.group.Do(key.String(), func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), key, logger)
	})
	if shared {
		observability.CoalescedFetchesTotal.Inc()
	}
	if err != nil {
		return models.ObservationSeries{}, fmt.Errorf("fetch %s: %w", key.SeriesID, err)
	}
	logger.Debug("series served", zap.String("series", key.SeriesID), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	return v.(models.ObservationSeries), nil
}

// lookup returns a fresh cache entry. Backend errors are logged and treated as a miss.
func (s *SeriesService) lookup(ctx context.Context, key cache.Key, logger *zap.Logger) (cache.Entry, bool) {
	entry, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		logger.Warn("cache get failed", zap.String("key", key.String()), zap.Error(err))
		return cache.Entry{}, false
	case !ok:
		observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return cache.Entry{}, false
	case s.now().Sub(entry.FetchedAt) >= s.ttl:
		observability.CacheLookupsTotal.WithLabelValues("expired").Inc()
		return cache.Entry{}, false
	}
	observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return entry, true
}

func (s *SeriesService) fetch(ctx context.Context, key cache.Key, logger *zap.Logger) (models.ObservationSeries, error) {
	logger.Debug("cache miss, fetching upstream", zap.String("key", key.String()))
	data, err := s.client.GetObservations(ctx, key.SeriesID, key.Window)
	if err != nil {
		return models.ObservationSeries{}, err
	}
	entry := cache.Entry{Series: data, FetchedAt: s.now()}
	if err := s.cache.Set(ctx, key, entry, s.ttl); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		logger.Warn("cache set failed", zap.String("key", key.String()), zap.Error(err))
	}
	return data, nil
}
