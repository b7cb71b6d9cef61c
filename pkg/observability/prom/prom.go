// Package prom implements the observability hooks with Prometheus metrics.
//
//	h := prom.New(prometheus.DefaultRegisterer)
//	observability.SetCatalogHooks(h)
//	observability.SetCacheHooks(h)
//	observability.SetHTTPHooks(h)
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/modcat/pkg/observability"
)

// Hooks records catalog, cache and HTTP events as Prometheus metrics.
type Hooks struct {
	loadsTotal       *prometheus.CounterVec
	loadDuration     prometheus.Histogram
	catalogModules   prometheus.Gauge
	resolutionsTotal prometheus.Counter
	unresolvedTotal  prometheus.Counter
	resolveDuration  prometheus.Histogram
	cacheTotal       *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
// It panics if a metric with the same name is already registered.
func New(reg prometheus.Registerer) *Hooks {
	h := &Hooks{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modcat_catalog_loads_total",
				Help: "Catalog loads by outcome.",
			},
			[]string{"result"},
		),
		loadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "modcat_catalog_load_duration_seconds",
				Help:    "Time spent fetching, merging and validating a catalog.",
				Buckets: prometheus.DefBuckets,
			},
		),
		catalogModules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "modcat_catalog_modules",
				Help: "Number of module records in the last published catalog.",
			},
		),
		resolutionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "modcat_resolutions_total",
				Help: "Dependency resolutions performed.",
			},
		),
		unresolvedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "modcat_unresolved_dependencies_total",
				Help: "Dependencies left out of a resolution because no version was compatible.",
			},
		),
		resolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "modcat_resolution_duration_seconds",
				Help:    "Time spent resolving one root module.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modcat_cache_operations_total",
				Help: "Cache operations by key type and outcome.",
			},
			[]string{"key_type", "op"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modcat_http_requests_total",
				Help: "Outgoing HTTP requests by host and status.",
			},
			[]string{"host", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modcat_http_request_duration_seconds",
				Help:    "Outgoing HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),
	}

	reg.MustRegister(
		h.loadsTotal,
		h.loadDuration,
		h.catalogModules,
		h.resolutionsTotal,
		h.unresolvedTotal,
		h.resolveDuration,
		h.cacheTotal,
		h.httpRequests,
		h.httpDuration,
	)
	return h
}

func (h *Hooks) OnLoadStart(context.Context, string) {}

func (h *Hooks) OnLoadComplete(_ context.Context, _ string, moduleCount int, d time.Duration, err error) {
	h.loadDuration.Observe(d.Seconds())
	if err != nil {
		h.loadsTotal.WithLabelValues("error").Inc()
		return
	}
	h.loadsTotal.WithLabelValues("ok").Inc()
	h.catalogModules.Set(float64(moduleCount))
}

func (h *Hooks) OnResolve(_ context.Context, _ string, _, unresolved int, d time.Duration) {
	h.resolutionsTotal.Inc()
	h.unresolvedTotal.Add(float64(unresolved))
	h.resolveDuration.Observe(d.Seconds())
}

func (h *Hooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (h *Hooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (h *Hooks) OnCacheSet(_ context.Context, keyType string, _ int) {
	h.cacheTotal.WithLabelValues(keyType, "set").Inc()
}

func (h *Hooks) OnRequest(context.Context, string, string, string) {}

func (h *Hooks) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	h.httpRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	h.httpDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (h *Hooks) OnError(_ context.Context, _, host, _ string, _ error) {
	h.httpRequests.WithLabelValues(host, "error").Inc()
}

var (
	_ observability.CatalogHooks = (*Hooks)(nil)
	_ observability.CacheHooks   = (*Hooks)(nil)
	_ observability.HTTPHooks    = (*Hooks)(nil)
)
