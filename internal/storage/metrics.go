package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for backend operations.
type Observer interface {
	RecordOperation(backend BackendKind, op string, duration time.Duration, items int, err error)
}

// PrometheusObserver exports backend metrics to Prometheus.
type PrometheusObserver struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	items    *prometheus.CounterVec
}

// NewPrometheusObserver registers the storage operation metrics.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "attachments_storage"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	observer := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of storage backend operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Count of failed storage backend operations.",
		}, []string{"backend", "operation"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_items_total",
			Help:      "Paths submitted to storage backend operations.",
		}, []string{"backend", "operation"}),
	}

	register := func(c prometheus.Collector) (prometheus.Collector, error) {
		if err := reg.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				return are.ExistingCollector, nil
			}
			return nil, fmt.Errorf("register storage metric: %w", err)
		}
		return c, nil
	}
	c, err := register(observer.duration)
	if err != nil {
		return nil, err
	}
	observer.duration = c.(*prometheus.HistogramVec)
	if c, err = register(observer.errors); err != nil {
		return nil, err
	}
	observer.errors = c.(*prometheus.CounterVec)
	if c, err = register(observer.items); err != nil {
		return nil, err
	}
	observer.items = c.(*prometheus.CounterVec)

	return observer, nil
}

func (o *PrometheusObserver) RecordOperation(backend BackendKind, op string, duration time.Duration, items int, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(string(backend), op).Observe(duration.Seconds())
	o.items.WithLabelValues(string(backend), op).Add(float64(items))
	if err != nil {
		o.errors.WithLabelValues(string(backend), op).Inc()
	}
}

type nopObserver struct{}

func (nopObserver) RecordOperation(BackendKind, string, time.Duration, int, error) {}

// InstrumentedBackend records every call of the wrapped backend.
type InstrumentedBackend struct {
	next     Backend
	observer Observer
}

// Instrument wraps b. A nil observer records nothing.
func Instrument(b Backend, observer Observer) *InstrumentedBackend {
	if observer == nil {
		observer = nopObserver{}
	}
	return &InstrumentedBackend{next: b, observer: observer}
}

// Unwrap gives access to the optional capabilities of the wrapped backend.
func (i *InstrumentedBackend) Unwrap() Backend { return i.next }

func (i *InstrumentedBackend) Kind() BackendKind { return i.next.Kind() }

func (i *InstrumentedBackend) FilesInfo(ctx context.Context, paths []string) (map[string]ObjectInfo, error) {
	start := time.Now()
	out, err := i.next.FilesInfo(ctx, paths)
	i.observer.RecordOperation(i.next.Kind(), "files_info", time.Since(start), len(paths), err)
	return out, err
}

func (i *InstrumentedBackend) SignURLs(ctx context.Context, files []FileRef) (map[string]string, error) {
	start := time.Now()
	out, err := i.next.SignURLs(ctx, files)
	i.observer.RecordOperation(i.next.Kind(), "sign", time.Since(start), len(files), err)
	return out, err
}

func (i *InstrumentedBackend) DeleteObjects(ctx context.Context, paths []string) error {
	start := time.Now()
	err := i.next.DeleteObjects(ctx, paths)
	i.observer.RecordOperation(i.next.Kind(), "delete", time.Since(start), len(paths), err)
	return err
}
