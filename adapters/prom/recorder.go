package prom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-productwebhook/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultDurationBuckets are in milliseconds, matching the *_ms metrics.
var DefaultDurationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// knownLabels pins label sets for metrics emitted by this module so every
// series of a metric shares the same labels.
var knownLabels = map[string][]string{
	core.MetricDispatchTotal:       {"state"},
	core.MetricDeliveryTotal:       {"error_kind", "status"},
	core.MetricDeliveryDuration:    {"error_kind", "status"},
	core.MetricQueueWorkerTotal:    {"event", "job_id"},
	core.MetricQueueWorkerDuration: {"event", "job_id"},
}

type Option func(*Recorder)

func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = sanitizeName(namespace)
	}
}

func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

type counterEntry struct {
	vec    *prometheus.CounterVec
	labels []string
}

type histogramEntry struct {
	vec    *prometheus.HistogramVec
	labels []string
}

// Recorder implements core.MetricsRecorder on prometheus vectors. Vectors
// are registered on first use; unknown metrics take their label set from
// the first observation.
type Recorder struct {
	mu         sync.Mutex
	registry   *prometheus.Registry
	namespace  string
	buckets    []float64
	counters   map[string]*counterEntry
	histograms map[string]*histogramEntry
}

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		registry:   prometheus.NewRegistry(),
		buckets:    DefaultDurationBuckets,
		counters:   map[string]*counterEntry{},
		histograms: map[string]*histogramEntry{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the recorder registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	entry, err := r.counter(name, tags)
	if err != nil {
		return
	}
	entry.vec.With(labelValues(entry.labels, tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	entry, err := r.histogram(name, tags)
	if err != nil {
		return
	}
	entry.vec.With(labelValues(entry.labels, tags)).Observe(value)
}

func (r *Recorder) counter(name string, tags map[string]string) (*counterEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.counters[name]; ok {
		return entry, nil
	}
	labels := labelNames(name, tags)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      sanitizeName(name),
		Help:      fmt.Sprintf("Counter %s", name),
	}, labels)
	if err := r.registry.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}
	entry := &counterEntry{vec: vec, labels: labels}
	r.counters[name] = entry
	return entry, nil
}

func (r *Recorder) histogram(name string, tags map[string]string) (*histogramEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.histograms[name]; ok {
		return entry, nil
	}
	labels := labelNames(name, tags)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      sanitizeName(name),
		Help:      fmt.Sprintf("Histogram %s", name),
		Buckets:   r.buckets,
	}, labels)
	if err := r.registry.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}
	entry := &histogramEntry{vec: vec, labels: labels}
	r.histograms[name] = entry
	return entry, nil
}

func labelNames(name string, tags map[string]string) []string {
	if known, ok := knownLabels[name]; ok {
		return known
	}
	labels := make([]string, 0, len(tags))
	for key := range tags {
		sanitized := sanitizeName(key)
		if sanitized == "" {
			continue
		}
		labels = append(labels, sanitized)
	}
	sort.Strings(labels)
	return labels
}

// labelValues fills missing labels with "" and drops unknown tags.
func labelValues(labels []string, tags map[string]string) prometheus.Labels {
	values := make(prometheus.Labels, len(labels))
	for _, label := range labels {
		values[label] = ""
	}
	for key, value := range tags {
		sanitized := sanitizeName(key)
		if _, ok := values[sanitized]; ok {
			values[sanitized] = value
		}
	}
	return values
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for i, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_':
			b.WriteRune(ch)
		case ch >= '0' && ch <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(ch)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var _ core.MetricsRecorder = (*Recorder)(nil)
