package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus records hook events as Prometheus metrics. It implements
// [IndexHooks], [CacheHooks] and [HTTPHooks].
type Prometheus struct {
	filesParsed   *prometheus.CounterVec
	parseDuration prometheus.Histogram
	indexRuns     *prometheus.CounterVec
	indexDuration prometheus.Histogram
	indexedSize   *prometheus.GaugeVec
	cacheOps      *prometheus.CounterVec
	cacheBytes    prometheus.Counter
	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewPrometheus creates the stubdex metrics and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		filesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stubdex",
			Name:      "files_parsed_total",
			Help:      "Stub files processed, by source (parsed or cached) and outcome.",
		}, []string{"source", "outcome"}),
		parseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stubdex",
			Name:      "file_parse_duration_seconds",
			Help:      "Time to parse one stub file.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		indexRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stubdex",
			Name:      "index_runs_total",
			Help:      "Corpus index runs, by outcome.",
		}, []string{"outcome"}),
		indexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stubdex",
			Name:      "index_duration_seconds",
			Help:      "Time to index a corpus.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		indexedSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stubdex",
			Name:      "indexed_declarations",
			Help:      "Declarations in the most recent index, by corpus and kind.",
		}, []string{"corpus", "kind"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stubdex",
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes, by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stubdex",
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stubdex",
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests being served.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stubdex",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stubdex",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(
		p.filesParsed, p.parseDuration, p.indexRuns, p.indexDuration, p.indexedSize,
		p.cacheOps, p.cacheBytes, p.httpInFlight, p.httpRequests, p.httpDuration,
	)
	return p
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnIndexStart(context.Context, string, int) {}

func (p *Prometheus) OnFileParsed(_ context.Context, _ string, cached bool, d time.Duration, err error) {
	source := "parsed"
	if cached {
		source = "cached"
	} else {
		p.parseDuration.Observe(d.Seconds())
	}
	p.filesParsed.WithLabelValues(source, outcome(err)).Inc()
}

func (p *Prometheus) OnIndexComplete(_ context.Context, corpus string, modules, methods int, d time.Duration, err error) {
	p.indexRuns.WithLabelValues(outcome(err)).Inc()
	p.indexDuration.Observe(d.Seconds())
	if err == nil {
		p.indexedSize.WithLabelValues(corpus, "modules").Set(float64(modules))
		p.indexedSize.WithLabelValues(corpus, "methods").Set(float64(methods))
	}
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheOps.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string) {
	p.httpInFlight.Inc()
}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.httpInFlight.Dec()
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

var (
	_ IndexHooks = (*Prometheus)(nil)
	_ CacheHooks = (*Prometheus)(nil)
	_ HTTPHooks  = (*Prometheus)(nil)
)
