package service

import (
	"time"

	"github.com/yndnr/wrought-go/internal/telemetry/logger"
	"github.com/yndnr/wrought-go/internal/telemetry/metric"
)

// ChunkObserver is told how many rows each processed chunk held.
type ChunkObserver func(rows int)

// Option configures a service.
type Option func(*options)

type options struct {
	logger   logger.Logger
	metrics  *metric.Registry
	observer ChunkObserver
	now      func() time.Time
}

func buildOptions(opts []Option) options {
	o := options{
		logger: logger.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. Defaults to logger.Default().
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records operation metrics into r.
func WithMetrics(r *metric.Registry) Option {
	return func(o *options) { o.metrics = r }
}

// WithChunkObserver reports progress while rows are streamed.
func WithChunkObserver(fn ChunkObserver) Option {
	return func(o *options) { o.observer = fn }
}

// WithClock overrides the time source used for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func (o options) observe(rows int) {
	if o.observer != nil {
		o.observer(rows)
	}
}
