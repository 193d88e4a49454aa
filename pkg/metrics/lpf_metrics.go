// LPF-specific metrics definitions
//
// Defines the metrics surface for the LPF transmit host: frames and
// repeat bursts sent per channel, burst errors by error code, toggle
// and address state, and burst timing.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	goruntime "runtime"
	"sync"
	"time"
)

// LPFMetrics holds all lpf-go metrics.
type LPFMetrics struct {
	FramesSentTotal    *Counter
	BurstsTotal        *Counter
	BurstErrorsTotal   *Counter
	BurstDuration      *Histogram
	ToggleState        *Gauge
	AddressState       *Gauge

	// System metrics
	HostUptime    *Counter
	GoGoroutines  *Gauge
	GoMemoryHeap  *Gauge
	GoMemoryAlloc *Gauge
	GoGCCycles    *Counter

	startTime time.Time
	registry  *Registry
	mu        sync.RWMutex
}

// NewLPFMetrics creates and registers all lpf-go metrics.
func NewLPFMetrics() *LPFMetrics {
	lm := &LPFMetrics{
		startTime: time.Now(),
		registry:  NewRegistry(),
	}

	lm.FramesSentTotal = NewCounter("lpf_frames_sent_total",
		"Total IR frames transmitted, per channel and output")
	lm.BurstsTotal = NewCounter("lpf_bursts_total",
		"Total repeat bursts transmitted, per channel")
	lm.BurstErrorsTotal = NewCounter("lpf_burst_errors_total",
		"Total repeat bursts that failed, by error code")
	lm.BurstDuration = NewHistogram("lpf_burst_duration_seconds",
		"Wall-clock time to transmit one repeat burst", BurstLatencyBuckets())
	lm.ToggleState = NewGauge("lpf_toggle_state",
		"Current toggle bit per channel (0 or 1)")
	lm.AddressState = NewGauge("lpf_address_state",
		"Current Extended-protocol address bit per channel (0 or 1)")

	lm.HostUptime = NewCounter("lpf_host_uptime_seconds_total",
		"Total host uptime in seconds")
	lm.GoGoroutines = NewGauge("lpf_go_goroutines",
		"Number of active goroutines")
	lm.GoMemoryHeap = NewGauge("lpf_go_memory_heap_bytes",
		"Go heap memory in use")
	lm.GoMemoryAlloc = NewGauge("lpf_go_memory_alloc_bytes",
		"Go total memory allocated")
	lm.GoGCCycles = NewCounter("lpf_go_gc_cycles_total",
		"Total Go garbage collection cycles")

	lm.registerAll()

	return lm
}

func (lm *LPFMetrics) registerAll() {
	all := []Metric{
		lm.FramesSentTotal, lm.BurstsTotal, lm.BurstErrorsTotal, lm.BurstDuration,
		lm.ToggleState, lm.AddressState,
		lm.HostUptime, lm.GoGoroutines, lm.GoMemoryHeap, lm.GoMemoryAlloc, lm.GoGCCycles,
	}
	for _, m := range all {
		lm.registry.MustRegister(m)
	}
}

// UpdateSystemMetrics updates Go runtime metrics.
func (lm *LPFMetrics) UpdateSystemMetrics() {
	var m goruntime.MemStats
	goruntime.ReadMemStats(&m)

	lm.GoGoroutines.Set(nil, float64(goruntime.NumGoroutine()))
	lm.GoMemoryHeap.Set(nil, float64(m.HeapAlloc))
	lm.GoMemoryAlloc.Set(nil, float64(m.Alloc))
	lm.GoGCCycles.Add(nil, uint64(m.NumGC)-lm.GoGCCycles.Get(nil))
	lm.HostUptime.Add(nil, uint64(time.Since(lm.startTime).Seconds())-lm.HostUptime.Get(nil))
}

// RecordFrameSent records one transmitted frame for a channel/output pair.
func (lm *LPFMetrics) RecordFrameSent(channel int, output string) {
	lm.FramesSentTotal.Inc(ChannelLabels(channel).Merge(Labels{"output": output}))
}

// RecordBurst records a completed repeat burst and its wall-clock duration.
func (lm *LPFMetrics) RecordBurst(channel int, duration time.Duration) {
	lm.BurstsTotal.Inc(ChannelLabels(channel))
	lm.BurstDuration.Observe(ChannelLabels(channel), duration.Seconds())
}

// RecordBurstError records a repeat burst that aborted with an error code.
func (lm *LPFMetrics) RecordBurstError(channel int, code string) {
	lm.BurstErrorsTotal.Inc(ChannelLabels(channel).Merge(Labels{"code": code}))
}

// SetToggleState records the current toggle bit for a channel.
func (lm *LPFMetrics) SetToggleState(channel int, toggle uint8) {
	lm.ToggleState.SetBit(ChannelLabels(channel), toggle)
}

// SetAddressState records the current Extended-protocol address bit for a channel.
func (lm *LPFMetrics) SetAddressState(channel int, address uint8) {
	lm.AddressState.SetBit(ChannelLabels(channel), address)
}

// ChannelState returns the last-recorded toggle and address bits for a
// channel, as currently exposed through the ToggleState/AddressState
// gauges. It exists so an operator-facing endpoint (see
// MetricsServer.handleChannels) can show per-channel state without
// scraping and parsing the Prometheus text output it also serves.
func (lm *LPFMetrics) ChannelState(channel int) (toggle, address uint8) {
	labels := ChannelLabels(channel)
	return uint8(lm.ToggleState.Get(labels)), uint8(lm.AddressState.Get(labels))
}

// Gather returns all metrics in Prometheus text format.
func (lm *LPFMetrics) Gather() string {
	lm.UpdateSystemMetrics()
	return lm.registry.Gather()
}

// Registry returns the internal registry.
func (lm *LPFMetrics) Registry() *Registry {
	return lm.registry
}

// Global metrics instance
var globalMetrics *LPFMetrics
var globalMetricsOnce sync.Once

// GlobalMetrics returns the global lpf-go metrics instance.
func GlobalMetrics() *LPFMetrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewLPFMetrics()
	})
	return globalMetrics
}
