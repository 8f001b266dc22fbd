package framio

import (
	"github.com/hupe1980/framio/codec"
)

type options struct {
	codec            codec.Codec
	pageCacheBytes   int64
	logger           *Logger
	metricsCollector MetricsCollector
}

func defaultOptions() options {
	return options{
		codec:            codec.Default,
		pageCacheBytes:   64 << 20,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
}

// Option configures reader behavior.
type Option func(*options)

// WithCodec configures the codec used for decoding frame parameters.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithPageCacheSize configures the byte capacity of the decompressed page
// cache shared across all files of the dataset. A size <= 0 disables the
// cache. The default is 64 MiB.
func WithPageCacheSize(bytes int64) Option {
	return func(o *options) {
		o.pageCacheBytes = bytes
	}
}

// WithLogger configures structured logging. If nil is passed, logging is
// disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures metrics collection. If nil is passed,
// metrics are disabled.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}
