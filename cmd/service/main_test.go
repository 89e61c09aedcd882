package main

import (
	"testing"
	"time"

	"github.com/kjstillabower/fred-dashboard-service/internal/cache"
	"github.com/kjstillabower/fred-dashboard-service/internal/config"
	"github.com/kjstillabower/fred-dashboard-service/internal/indicators"
)

// Entrypoint wiring beyond these helpers needs a live listener and signals; it is
// covered by the http integration tests.

func TestNewStore_InMemory(t *testing.T) {
	store, mc, err := newStore(&config.Config{CacheBackend: "in_memory"})
	if err != nil {
		t.Fatalf("newStore() error = %v", err)
	}
	if mc != nil {
		t.Error("newStore() returned memcached client for in_memory backend")
	}
	if _, ok := store.(*cache.InMemoryCache); !ok {
		t.Errorf("newStore() = %T, want *cache.InMemoryCache", store)
	}
}

func TestNewStore_MemcachedWithoutAddrs(t *testing.T) {
	_, _, err := newStore(&config.Config{CacheBackend: "memcached", MemcachedAddrs: "", MemcachedTimeout: time.Second})
	if err == nil {
		t.Fatal("newStore() expected error for memcached without addresses")
	}
}

func TestSeriesIDs(t *testing.T) {
	ids := seriesIDs(indicators.Default())
	if len(ids) != 5 {
		t.Fatalf("seriesIDs() len = %d, want 5", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" || seen[id] {
			t.Errorf("seriesIDs() has empty or duplicate id %q", id)
		}
		seen[id] = true
	}
}
