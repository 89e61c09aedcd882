package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/fred-dashboard-service/internal/cache"
	"github.com/kjstillabower/fred-dashboard-service/internal/client"
	"github.com/kjstillabower/fred-dashboard-service/internal/indicators"
	"github.com/kjstillabower/fred-dashboard-service/internal/models"
	"github.com/kjstillabower/fred-dashboard-service/internal/observability"
)

type mockObservationsClient struct {
	series  models.ObservationSeries
	err     error
	credErr error
	calls   atomic.Int32
	release chan struct{}
	lastID  atomic.Value
}

func (m *mockObservationsClient) GetObservations(ctx context.Context, seriesID string, window models.DateRange) (models.ObservationSeries, error) {
	m.calls.Add(1)
	m.lastID.Store(seriesID)
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return models.ObservationSeries{}, m.err
	}
	out := m.series
	out.SeriesID = seriesID
	return out, nil
}

func (m *mockObservationsClient) CredentialStatus() error {
	return m.credErr
}

type failingCache struct {
	getErr error
	setErr error
}

func (f *failingCache) Get(ctx context.Context, key cache.Key) (cache.Entry, bool, error) {
	return cache.Entry{}, false, f.getErr
}

func (f *failingCache) Set(ctx context.Context, key cache.Key, value cache.Entry, ttl time.Duration) error {
	return f.setErr
}

func sampleSeries() models.ObservationSeries {
	return models.ObservationSeries{
		Observations: []models.Observation{
			{Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Value: null.FloatFrom(3.5)},
			{Date: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), Value: null.Float{}},
		},
	}
}

var testWindow = models.DateRange{
	Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
}

// TestGetSeries_CacheAside verifies the first call fetches and the second is served from cache.
func TestGetSeries_CacheAside(t *testing.T) {
	mc := &mockObservationsClient{series: sampleSeries()}
	svc := NewSeriesService(mc, cache.NewInMemoryCache(), indicators.Default(), time.Hour)

	for i := 0; i < 2; i++ {
		got, err := svc.GetSeries(context.Background(), "UNRATE", testWindow)
		if err != nil {
			t.Fatalf("GetSeries() call %d error = %v", i, err)
		}
		if got.Len() != 2 || got.SeriesID != "UNRATE" {
			t.Errorf("GetSeries() call %d = %+v", i, got)
		}
	}
	if n := mc.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

// TestGetSeries_ResolvesDisplayName verifies a display name is mapped to its series id before fetching.
func TestGetSeries_ResolvesDisplayName(t *testing.T) {
	mc := &mockObservationsClient{series: sampleSeries()}
	svc := NewSeriesService(mc, cache.NewInMemoryCache(), indicators.Default(), time.Hour)

	if _, err := svc.GetSeries(context.Background(), "Unemployment Rate", testWindow); err != nil {
		t.Fatalf("GetSeries() error = %v", err)
	}
	if got := mc.lastID.Load(); got != "UNRATE" {
		t.Errorf("upstream series id = %v, want UNRATE", got)
	}
}

func TestGetSeries_UnknownSeries_NoFetch(t *testing.T) {
	mc := &mockObservationsClient{}
	svc := NewSeriesService(mc, cache.NewInMemoryCache(), indicators.Default(), time.Hour)

	_, err := svc.GetSeries(context.Background(), "NOPE", testWindow)
	if !errors.Is(err, indicators.ErrUnknownIndicator) {
		t.Fatalf("GetSeries() error = %v, want ErrUnknownIndicator", err)
	}
	if n := mc.calls.Load(); n != 0 {
		t.Errorf("upstream calls = %d, want 0", n)
	}
}

// TestGetSeries_ExpiredEntryRefetches verifies freshness is judged from FetchedAt.
func TestGetSeries_ExpiredEntryRefetches(t *testing.T) {
	mc := &mockObservationsClient{series: sampleSeries()}
	svc := NewSeriesService(mc, cache.NewInMemoryCache(), indicators.Default(), time.Hour)
	now := time.Now()
	svc.now = func() time.Time { return now }

	if _, err := svc.GetSeries(context.Background(), "DFF", testWindow); err != nil {
		t.Fatal(err)
	}
	now = now.Add(30 * time.Minute)
	if _, err := svc.GetSeries(context.Background(), "DFF", testWindow); err != nil {
		t.Fatal(err)
	}
	if n := mc.calls.Load(); n != 1 {
		t.Fatalf("upstream calls after 30m = %d, want 1", n)
	}
	now = now.Add(31 * time.Minute)
	if _, err := svc.GetSeries(context.Background(), "DFF", testWindow); err != nil {
		t.Fatal(err)
	}
	if n := mc.calls.Load(); n != 2 {
		t.Errorf("upstream calls after 61m = %d, want 2", n)
	}
}

func TestGetSeries_DistinctWindowsFetchSeparately(t *testing.T) {
	mc := &mockObservationsClient{series: sampleSeries()}
	svc := NewSeriesService(mc, cache.NewInMemoryCache(), indicators.Default(), time.Hour)

	other := testWindow
	other.Start = other.Start.AddDate(-1, 0, 0)
	_, _ = svc.GetSeries(context.Background(), "DFF", testWindow)
	_, _ = svc.GetSeries(context.Background(), "DFF", other)
	if n := mc.calls.Load(); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestGetSeries_UpstreamError(t *testing.T) {
	mc := &mockObservationsClient{err: client.ErrTransport}
	store := cache.NewInMemoryCache()
	svc := NewSeriesService(mc, store, indicators.Default(), time.Hour)

	_, err := svc.GetSeries(context.Background(), "DFF", testWindow)
	if !errors.Is(err, client.ErrTransport) {
		t.Fatalf("GetSeries() error = %v, want ErrTransport", err)
	}
	if store.Len() != 0 {
		t.Errorf("cache Len() = %d, want 0 after failed fetch", store.Len())
	}
}

// TestGetSeries_CacheErrorsAreNotFatal verifies backend failures degrade to upstream fetches.
func TestGetSeries_CacheErrorsAreNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := observability.WithLogger(context.Background(), zap.New(core))
	mc := &mockObservationsClient{series: sampleSeries()}
	store := &failingCache{getErr: errors.New("memcache: connection refused"), setErr: errors.New("memcache: timeout")}
	svc := NewSeriesService(mc, store, indicators.Default(), time.Hour)

	got, err := svc.GetSeries(ctx, "DFF", testWindow)
	if err != nil {
		t.Fatalf("GetSeries() error = %v", err)
	}
	if got.Len() != 2 {
		t.Errorf("Len() = %d, want 2", got.Len())
	}
	if logs.FilterMessage("cache get failed").Len() != 1 || logs.FilterMessage("cache set failed").Len() != 1 {
		t.Errorf("expected get and set warnings, got %v", logs.All())
	}
}

// TestGetSeries_CoalescesConcurrentMisses verifies identical concurrent misses share one upstream call.
func TestGetSeries_CoalescesConcurrentMisses(t *testing.T) {
	mc := &mockObservationsClient{series: sampleSeries(), release: make(chan struct{})}
	svc := NewSeriesService(mc, cache.NewInMemoryCache(), indicators.Default(), time.Hour)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetSeries(context.Background(), "GDPC1", testWindow)
			errs <- err
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for mc.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	close(mc.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("GetSeries() error = %v", err)
		}
	}
	if n := mc.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

func TestNewSeriesService_DefaultTTL(t *testing.T) {
	svc := NewSeriesService(&mockObservationsClient{}, cache.NewInMemoryCache(), indicators.Default(), 0)
	if svc.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", svc.ttl, DefaultTTL)
	}
}

func TestCredentialStatus(t *testing.T) {
	svc := NewSeriesService(&mockObservationsClient{credErr: client.ErrMissingAPIKey}, cache.NewInMemoryCache(), indicators.Default(), 0)
	if !errors.Is(svc.CredentialStatus(), client.ErrMissingAPIKey) {
		t.Errorf("CredentialStatus() = %v, want ErrMissingAPIKey", svc.CredentialStatus())
	}
}
