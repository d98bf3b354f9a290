package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCounterSameKeyReturnsSameInstance(t *testing.T) {
	r := NewRegistry()
	a := r.Counter("x_total", "help", Label("outcome", "ok"))
	b := r.Counter("x_total", "other help", Label("outcome", "ok"))
	if a != b {
		t.Error("expected the same counter for the same name and labels")
	}

	a.Inc()
	b.Add(2)
	if a.Value() != 3 {
		t.Errorf("expected 3, got %d", a.Value())
	}
}

func TestCounterConcurrentInc(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Counter("c_total", "h", "").Inc()
		}()
	}
	wg.Wait()

	if got := r.Counter("c_total", "h", "").Value(); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}

func TestGauge(t *testing.T) {
	r := NewRegistry()
	g := r.Gauge("depth", "h", "")
	g.Set(5)
	g.Inc()
	g.Dec()
	g.Dec()
	if g.Value() != 4 {
		t.Errorf("expected 4, got %d", g.Value())
	}
}

func TestHistogramBuckets(t *testing.T) {
	r := NewRegistry()
	h := r.Histogram("lat_seconds", "h", "", []float64{1, 0.5})
	h.Observe(0.2)
	h.Observe(0.7)
	h.ObserveDuration(3 * time.Second)

	if h.Count() != 3 {
		t.Errorf("expected 3 observations, got %d", h.Count())
	}

	var sb strings.Builder
	r.WriteTo(&sb)
	out := sb.String()
	for _, want := range []string{
		`lat_seconds_bucket{le="0.5"} 1`,
		`lat_seconds_bucket{le="1"} 2`,
		`lat_seconds_bucket{le="+Inf"} 3`,
		`lat_seconds_count 3`,
		`# TYPE lat_seconds histogram`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHandlerRendersPrometheusText(t *testing.T) {
	r := NewRegistry()
	r.Counter("warelay_webhooks_total", "Inbound webhooks", Label("outcome", "accepted")).Add(2)
	r.Counter("warelay_webhooks_total", "Inbound webhooks", Label("outcome", "ignored")).Inc()
	r.Gauge("warelay_dispatch_queue_depth", "Queue", "").Set(7)

	rec := httptest.NewRecorder()
	r.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain, got %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`warelay_webhooks_total{outcome="accepted"} 2`,
		`warelay_webhooks_total{outcome="ignored"} 1`,
		`warelay_dispatch_queue_depth 7`,
		`warelay_uptime_seconds`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if n := strings.Count(body, "# TYPE warelay_webhooks_total counter"); n != 1 {
		t.Errorf("expected one TYPE line per family, got %d", n)
	}
}

func TestLabelEscapes(t *testing.T) {
	if got := Label("k", `a"b\c`); got != `k="a\"b\\c"` {
		t.Errorf("unexpected label %s", got)
	}
}

func TestHelpersRecordOnDefault(t *testing.T) {
	before := Default.Counter("warelay_replies_total", "", Label("outcome", ReplySent)).Value()
	Reply(ReplySent)
	after := Default.Counter("warelay_replies_total", "", Label("outcome", ReplySent)).Value()
	if after != before+1 {
		t.Errorf("expected counter to advance by 1, got %d -> %d", before, after)
	}
}
