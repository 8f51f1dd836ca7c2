// Package metrics exports upload and chunk metrics to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/damkit/go-damclient/upload"
	"github.com/damkit/go-damclient/upload/chunkuploader"
	promclient "github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "damclient"

// PrometheusObserver records upload and chunk outcomes.
type PrometheusObserver struct {
	uploadDuration *promclient.HistogramVec
	uploadedBytes  promclient.Counter
	chunkAttempts  *promclient.CounterVec
	chunkDuration  promclient.Histogram
}

// NewPrometheusObserver registers the upload metrics on reg, or on the default registerer when reg is nil.
// Registering twice on the same registerer reuses the existing collectors.
func NewPrometheusObserver(namespace string, reg promclient.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	var err error
	observer := &PrometheusObserver{}

	observer.uploadDuration, err = register(reg, promclient.NewHistogramVec(promclient.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_duration_seconds",
		Help:      "Duration of file uploads from prepare to save.",
		Buckets:   promclient.ExponentialBuckets(0.1, 2, 12),
	}, []string{"result"}))
	if err != nil {
		return nil, fmt.Errorf("register upload histogram: %w", err)
	}

	observer.uploadedBytes, err = register(reg, promclient.NewCounter(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "uploaded_bytes_total",
		Help:      "Bytes sent in successfully uploaded chunks.",
	}))
	if err != nil {
		return nil, fmt.Errorf("register uploaded bytes counter: %w", err)
	}

	observer.chunkAttempts, err = register(reg, promclient.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "chunk_attempts_total",
		Help:      "Chunk send attempts by outcome.",
	}, []string{"result", "attempt"}))
	if err != nil {
		return nil, fmt.Errorf("register chunk attempts counter: %w", err)
	}

	observer.chunkDuration, err = register(reg, promclient.NewHistogram(promclient.HistogramOpts{
		Namespace: namespace,
		Name:      "chunk_duration_seconds",
		Help:      "Duration of single chunk send attempts.",
		Buckets:   promclient.DefBuckets,
	}))
	if err != nil {
		return nil, fmt.Errorf("register chunk histogram: %w", err)
	}

	return observer, nil
}

// UploadFinished records the outcome of an UploadFile call.
func (o *PrometheusObserver) UploadFinished(took time.Duration, _ int64, _ int, err error) {
	if o == nil {
		return
	}
	o.uploadDuration.WithLabelValues(resultLabel(err)).Observe(took.Seconds())
}

// ChunkAttempted records a single chunk send attempt.
func (o *PrometheusObserver) ChunkAttempted(_, attempt int, size int64, took time.Duration, err error) {
	if o == nil {
		return
	}
	o.chunkAttempts.WithLabelValues(resultLabel(err), strconv.Itoa(attempt)).Inc()
	o.chunkDuration.Observe(took.Seconds())
	if err == nil {
		o.uploadedBytes.Add(float64(size))
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, upload.ErrCanceled):
		return "cancelled"
	default:
		return "failure"
	}
}

func register[T promclient.Collector](reg promclient.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var are promclient.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}

	var zero T
	return zero, err
}

var (
	_ upload.Observer        = (*PrometheusObserver)(nil)
	_ chunkuploader.Observer = (*PrometheusObserver)(nil)
)
