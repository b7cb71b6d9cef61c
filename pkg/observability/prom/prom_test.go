package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCatalogMetrics(t *testing.T) {
	h := New(prometheus.NewRegistry())
	ctx := context.Background()

	h.OnLoadStart(ctx, "feed")
	h.OnLoadComplete(ctx, "feed", 12, time.Second, nil)
	h.OnLoadComplete(ctx, "feed", 0, time.Second, errors.New("boom"))

	if got := testutil.ToFloat64(h.loadsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok loads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.loadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("error loads = %v, want 1", got)
	}
	// A failed load keeps the last published size.
	if got := testutil.ToFloat64(h.catalogModules); got != 12 {
		t.Errorf("modules gauge = %v, want 12", got)
	}

	h.OnResolve(ctx, "A@1.0.0", 3, 2, time.Millisecond)
	if got := testutil.ToFloat64(h.resolutionsTotal); got != 1 {
		t.Errorf("resolutions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.unresolvedTotal); got != 2 {
		t.Errorf("unresolved = %v, want 2", got)
	}
}

func TestCacheAndHTTPMetrics(t *testing.T) {
	h := New(prometheus.NewRegistry())
	ctx := context.Background()

	h.OnCacheMiss(ctx, "feed")
	h.OnCacheSet(ctx, "feed", 10)
	h.OnCacheHit(ctx, "feed")
	h.OnCacheHit(ctx, "feed")

	if got := testutil.ToFloat64(h.cacheTotal.WithLabelValues("feed", "hit")); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}

	h.OnRequest(ctx, "GET", "feed.example", "/modules.json")
	h.OnResponse(ctx, "GET", "feed.example", "/modules.json", 200, time.Millisecond)
	h.OnError(ctx, "GET", "feed.example", "/modules.json", errors.New("reset"))

	if got := testutil.ToFloat64(h.httpRequests.WithLabelValues("feed.example", "200")); got != 1 {
		t.Errorf("200 responses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.httpRequests.WithLabelValues("feed.example", "error")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Error("registering twice should panic")
		}
	}()
	New(reg)
}
