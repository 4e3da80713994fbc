// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the registered hooks; main decides what
// receives them. The defaults are no-ops, so packages like pipeline and
// server never depend on a metrics backend directly. [Prometheus] is the
// implementation `stubdex serve` registers.
//
// Register hooks at startup:
//
//	m := observability.NewPrometheus(prometheus.NewRegistry())
//	observability.SetIndexHooks(m)
//	observability.SetCacheHooks(m)
//	observability.SetHTTPHooks(m)
//
// Emit events from libraries:
//
//	observability.Index().OnFileParsed(ctx, path, cached, time.Since(start), err)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// IndexHooks receives events from corpus indexing.
type IndexHooks interface {
	OnIndexStart(ctx context.Context, corpus string, files int)
	OnFileParsed(ctx context.Context, path string, cached bool, duration time.Duration, err error)
	OnIndexComplete(ctx context.Context, corpus string, modules, methods int, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations. keyType is the key
// prefix, such as "parse" or "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP server. Route is the matched
// route pattern, not the raw path, to keep label cardinality bounded. It is
// empty in OnRequest, which runs before routing.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// The Noop types discard every event.
type NoopIndexHooks struct{}

func (NoopIndexHooks) OnIndexStart(context.Context, string, int)                               {}
func (NoopIndexHooks) OnFileParsed(context.Context, string, bool, time.Duration, error)        {}
func (NoopIndexHooks) OnIndexComplete(context.Context, string, int, int, time.Duration, error) {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// slot holds one registered hook implementation.
type slot[T any] struct {
	p   atomic.Pointer[T]
	def T
}

func (s *slot[T]) get() T {
	if h := s.p.Load(); h != nil {
		return *h
	}
	return s.def
}

func (s *slot[T]) set(h T) { s.p.Store(&h) }

func (s *slot[T]) reset() { s.p.Store(nil) }

var (
	indexSlot = slot[IndexHooks]{def: NoopIndexHooks{}}
	cacheSlot = slot[CacheHooks]{def: NoopCacheHooks{}}
	httpSlot  = slot[HTTPHooks]{def: NoopHTTPHooks{}}
)

// SetIndexHooks registers index hooks. Nil is ignored.
func SetIndexHooks(h IndexHooks) {
	if h != nil {
		indexSlot.set(h)
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		cacheSlot.set(h)
	}
}

// SetHTTPHooks registers HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		httpSlot.set(h)
	}
}

func Index() IndexHooks { return indexSlot.get() }
func Cache() CacheHooks { return cacheSlot.get() }
func HTTP() HTTPHooks   { return httpSlot.get() }

// Reset restores the no-op defaults.
func Reset() {
	indexSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
}
