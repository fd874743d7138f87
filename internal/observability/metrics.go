package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects and aggregates counters for the generation pipeline.
type Metrics struct {
	mu sync.Mutex

	// Counters
	generationTotal  atomic.Int64
	fallbackTotal    atomic.Int64
	validationDrops  atomic.Int64
	deliveryFailures atomic.Int64

	// Duration window (simplified for internal use)
	durations    []time.Duration
	maxDurations int
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// Global metrics instance.
var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordGeneration records one completed generation request.
func (m *Metrics) RecordGeneration(duration time.Duration) {
	m.generationTotal.Add(1)

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		// Remove oldest duration (FIFO)
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

// RecordFallback records one request served by the rule generator.
func (m *Metrics) RecordFallback() {
	m.fallbackTotal.Add(1)
}

// RecordValidationDrop records one candidate card rejected by the validator.
func (m *Metrics) RecordValidationDrop() {
	m.validationDrops.Add(1)
}

// RecordDeliveryFailure records one pruned push connection.
func (m *Metrics) RecordDeliveryFailure() {
	m.deliveryFailures.Add(1)
}

// Snapshot is a point-in-time view of the collected metrics.
type Snapshot struct {
	GenerationTotal  int64
	FallbackTotal    int64
	ValidationDrops  int64
	DeliveryFailures int64
	AvgDuration      time.Duration
}

// SnapshotNow returns the current metric values.
func (m *Metrics) SnapshotNow() Snapshot {
	m.mu.Lock()
	var total time.Duration
	for _, d := range m.durations {
		total += d
	}
	var avg time.Duration
	if len(m.durations) > 0 {
		avg = total / time.Duration(len(m.durations))
	}
	m.mu.Unlock()

	return Snapshot{
		GenerationTotal:  m.generationTotal.Load(),
		FallbackTotal:    m.fallbackTotal.Load(),
		ValidationDrops:  m.validationDrops.Load(),
		DeliveryFailures: m.deliveryFailures.Load(),
		AvgDuration:      avg,
	}
}
