package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	i := NoopIndexHooks{}
	i.OnIndexStart(ctx, "core", 10)
	i.OnFileParsed(ctx, "core/array.rb", false, time.Millisecond, nil)
	i.OnIndexComplete(ctx, "core", 5, 50, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "parse")
	c.OnCacheMiss(ctx, "parse")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "/api/v1/lookup")
	h.OnResponse(ctx, "GET", "/api/v1/lookup", 200, time.Millisecond)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Index().(NoopIndexHooks); !ok {
		t.Error("Index() should return NoopIndexHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customIndex := &testIndexHooks{}
	SetIndexHooks(customIndex)
	if Index() != customIndex {
		t.Error("SetIndexHooks should set custom hooks")
	}
	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}
	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	SetIndexHooks(nil)
	if Index() != customIndex {
		t.Error("SetIndexHooks(nil) should be ignored")
	}

	Reset()
	if _, ok := Index().(NoopIndexHooks); !ok {
		t.Error("Reset() should restore NoopIndexHooks")
	}
}

func TestPrometheus(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.OnFileParsed(ctx, "a.rb", false, time.Millisecond, nil)
	p.OnFileParsed(ctx, "b.rb", true, 0, nil)
	p.OnFileParsed(ctx, "c.rb", false, time.Millisecond, errors.New("boom"))
	p.OnIndexComplete(ctx, "core", 3, 12, time.Second, nil)
	p.OnCacheHit(ctx, "parse")
	p.OnCacheSet(ctx, "parse", 100)
	p.OnRequest(ctx, "GET", "/healthz")
	p.OnResponse(ctx, "GET", "/healthz", 200, time.Millisecond)

	if got := testutil.ToFloat64(p.filesParsed.WithLabelValues("parsed", "ok")); got != 1 {
		t.Errorf("parsed ok = %v", got)
	}
	if got := testutil.ToFloat64(p.filesParsed.WithLabelValues("cached", "ok")); got != 1 {
		t.Errorf("cached ok = %v", got)
	}
	if got := testutil.ToFloat64(p.indexedSize.WithLabelValues("core", "methods")); got != 12 {
		t.Errorf("indexed methods = %v", got)
	}
	if got := testutil.ToFloat64(p.httpInFlight); got != 0 {
		t.Errorf("in flight = %v", got)
	}

	want := `
# HELP stubdex_http_requests_total HTTP requests served, by method, route and status code.
# TYPE stubdex_http_requests_total counter
stubdex_http_requests_total{code="200",method="GET",route="/healthz"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "stubdex_http_requests_total"); err != nil {
		t.Error(err)
	}
}

type testIndexHooks struct{ NoopIndexHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
