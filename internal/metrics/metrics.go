// Package metrics keeps process counters and renders them in the Prometheus
// text exposition format.
package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Registry holds counters, gauges and histograms keyed by name and labels.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	help       map[string]string
	start      time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
		help:       make(map[string]string),
		start:      time.Now(),
	}
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc() { c.value.Add(1) }
func (c *Counter) Add(n int64) { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name   string
	labels string
	value  atomic.Int64
}

func (g *Gauge) Set(v int64) { g.value.Store(v) }
func (g *Gauge) Inc() { g.value.Add(1) }
func (g *Gauge) Dec() { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks the distribution of observed values. Bucket counts are
// cumulative.
type Histogram struct {
	name    string
	labels  string
	mu      sync.Mutex
	count   int64
	sum     float64
	bounds  []float64
	buckets []int64
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.buckets[i]++
		}
	}
}

// ObserveDuration records d in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Label formats a single name="value" pair.
func Label(name, value string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return name + `="` + r.Replace(value) + `"`
}

func key(name, labels string) string {
	return name + "{" + labels + "}"
}

// Counter returns or creates the counter for name and labels.
func (r *Registry) Counter(name, help, labels string) *Counter {
	k := key(name, labels)
	r.mu.RLock()
	c, ok := r.counters[k]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[k]; ok {
		return c
	}
	c = &Counter{name: name, labels: labels}
	r.counters[k] = c
	r.setHelp(name, help)
	return c
}

// Gauge returns or creates the gauge for name and labels.
func (r *Registry) Gauge(name, help, labels string) *Gauge {
	k := key(name, labels)
	r.mu.RLock()
	g, ok := r.gauges[k]
	r.mu.RUnlock()
	if ok {
		return g
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[k]; ok {
		return g
	}
	g = &Gauge{name: name, labels: labels}
	r.gauges[k] = g
	r.setHelp(name, help)
	return g
}

// Histogram returns or creates the histogram for name and labels. buckets is
// only used on creation.
func (r *Registry) Histogram(name, help, labels string, buckets []float64) *Histogram {
	k := key(name, labels)
	r.mu.RLock()
	h, ok := r.histograms[k]
	r.mu.RUnlock()
	if ok {
		return h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[k]; ok {
		return h
	}
	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)
	if len(bounds) == 0 || !math.IsInf(bounds[len(bounds)-1], 1) {
		bounds = append(bounds, math.Inf(1))
	}
	h = &Histogram{name: name, labels: labels, bounds: bounds, buckets: make([]int64, len(bounds))}
	r.histograms[k] = h
	r.setHelp(name, help)
	return h
}

func (r *Registry) setHelp(name, help string) {
	if _, ok := r.help[name]; !ok {
		r.help[name] = help
	}
}

// Handler renders the registry in Prometheus text format.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WriteTo(w)
	}
}

// WriteTo writes every metric to w, grouped by name in sorted order.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP warelay_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE warelay_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "warelay_uptime_seconds %d\n", int64(time.Since(r.start).Seconds()))

	r.mu.RLock()
	writeFamily(&sb, r.help, "counter", sortedKeys(r.counters), func(k string) (string, string, int64) {
		c := r.counters[k]
		return c.name, c.labels, c.Value()
	})
	writeFamily(&sb, r.help, "gauge", sortedKeys(r.gauges), func(k string) (string, string, int64) {
		g := r.gauges[k]
		return g.name, g.labels, g.Value()
	})

	written := make(map[string]bool)
	for _, k := range sortedKeys(r.histograms) {
		h := r.histograms[k]
		if !written[h.name] {
			fmt.Fprintf(&sb, "# HELP %s %s\n", h.name, r.help[h.name])
			fmt.Fprintf(&sb, "# TYPE %s histogram\n", h.name)
			written[h.name] = true
		}
		h.write(&sb)
	}
	r.mu.RUnlock()

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

func (h *Histogram) write(sb *strings.Builder) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sep := ""
	if h.labels != "" {
		sep = ","
	}
	for i, le := range h.bounds {
		bound := fmt.Sprintf("%g", le)
		if math.IsInf(le, 1) {
			bound = "+Inf"
		}
		fmt.Fprintf(sb, "%s_bucket{%s%sle=\"%s\"} %d\n", h.name, h.labels, sep, bound, h.buckets[i])
	}
	fmt.Fprintf(sb, "%s_sum%s %g\n", h.name, braces(h.labels), h.sum)
	fmt.Fprintf(sb, "%s_count%s %d\n", h.name, braces(h.labels), h.count)
}

func writeFamily(sb *strings.Builder, help map[string]string, kind string, keys []string, get func(string) (string, string, int64)) {
	written := make(map[string]bool)
	for _, k := range keys {
		name, labels, v := get(k)
		if !written[name] {
			fmt.Fprintf(sb, "# HELP %s %s\n", name, help[name])
			fmt.Fprintf(sb, "# TYPE %s %s\n", name, kind)
			written[name] = true
		}
		fmt.Fprintf(sb, "%s%s %d\n", name, braces(labels), v)
	}
}

func braces(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
