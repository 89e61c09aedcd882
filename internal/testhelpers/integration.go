//go:build integration
// +build integration

// Package testhelpers wires real dependencies for integration tests. Tests skip
// unless FRED_API_KEY is set.
package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/fred-dashboard-service/internal/cache"
	"github.com/kjstillabower/fred-dashboard-service/internal/client"
	"github.com/kjstillabower/fred-dashboard-service/internal/dashboard"
	"github.com/kjstillabower/fred-dashboard-service/internal/indicators"
	"github.com/kjstillabower/fred-dashboard-service/internal/service"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey        string
	APIURL        string
	CacheBackend  string // "in_memory" or "memcached"
	MemcachedAddr string
}

// GetIntegrationConfig loads integration test configuration from environment.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("FRED_API_KEY")
	if apiKey == "" {
		t.Skip("FRED_API_KEY not set, skipping integration test")
	}
	apiURL := os.Getenv("FRED_API_URL")
	if apiURL == "" {
		apiURL = client.DefaultBaseURL
	}
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}
	return IntegrationTestConfig{
		APIKey:        apiKey,
		APIURL:        apiURL,
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
	}
}

// SetupIntegrationService returns a SeriesService over the real FRED API and the
// configured cache backend, falling back to in-memory when memcached is unreachable.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) *service.SeriesService {
	t.Helper()
	c, err := client.NewFREDClient(cfg.APIKey, cfg.APIURL, 15*time.Second)
	if err != nil {
		t.Fatalf("NewFREDClient() error = %v", err)
	}

	var store cache.Cache = cache.NewInMemoryCache()
	if cfg.CacheBackend == "memcached" {
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err == nil && mc.Ping() == nil {
			store = mc
			t.Cleanup(func() { _ = mc.Close() })
			t.Logf("Using Memcached cache at %s", cfg.MemcachedAddr)
		} else {
			t.Logf("Memcached not available, using in-memory cache")
		}
	}
	return service.NewSeriesService(c, store, indicators.Default(), time.Hour)
}

// SetupIntegrationPipeline returns a dashboard pipeline over SetupIntegrationService.
func SetupIntegrationPipeline(t *testing.T, cfg IntegrationTestConfig) (*dashboard.Pipeline, *service.SeriesService) {
	t.Helper()
	svc := SetupIntegrationService(t, cfg)
	return dashboard.NewPipeline(indicators.Default(), svc, dashboard.Options{}), svc
}
