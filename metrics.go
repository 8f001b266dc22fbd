package framio

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordOpen is called after a dataset open attempt.
	// files is the number of files in the chain, duration the total time
	// taken, err nil if successful.
	RecordOpen(files int, duration time.Duration, err error)

	// RecordRead is called after each frame read attempt.
	RecordRead(category string, duration time.Duration, err error)

	// RecordCategoryInit is called after a category's lazy initialization.
	RecordCategoryInit(category string, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOpen(int, time.Duration, error)            {}
func (NoopMetricsCollector) RecordRead(string, time.Duration, error)         {}
func (NoopMetricsCollector) RecordCategoryInit(string, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OpenCount      atomic.Int64
	OpenErrors     atomic.Int64
	ReadCount      atomic.Int64
	ReadErrors     atomic.Int64
	ReadTotalNanos atomic.Int64
	InitCount      atomic.Int64
	InitErrors     atomic.Int64
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(files int, duration time.Duration, err error) {
	b.OpenCount.Add(1)
	if err != nil {
		b.OpenErrors.Add(1)
	}
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(category string, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// RecordCategoryInit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCategoryInit(category string, duration time.Duration, err error) {
	b.InitCount.Add(1)
	if err != nil {
		b.InitErrors.Add(1)
	}
}

// BasicMetricsStats is a snapshot of a BasicMetricsCollector.
type BasicMetricsStats struct {
	OpenCount     int64
	OpenErrors    int64
	ReadCount     int64
	ReadErrors    int64
	ReadAvgNanos  int64
	InitCount     int64
	InitErrors    int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	stats := BasicMetricsStats{
		OpenCount:  b.OpenCount.Load(),
		OpenErrors: b.OpenErrors.Load(),
		ReadCount:  b.ReadCount.Load(),
		ReadErrors: b.ReadErrors.Load(),
		InitCount:  b.InitCount.Load(),
		InitErrors: b.InitErrors.Load(),
	}
	if stats.ReadCount > 0 {
		stats.ReadAvgNanos = b.ReadTotalNanos.Load() / stats.ReadCount
	}
	return stats
}
