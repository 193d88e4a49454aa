// Unit tests for Prometheus metrics primitives
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"math"
	"strings"
	"sync"
	"testing"
)

// TestCounterBasic tests basic counter operations
func TestCounterBasic(t *testing.T) {
	c := NewCounter("lpf_frames_sent_total", "Total LPF frames transmitted")

	if v := c.Get(nil); v != 0 {
		t.Errorf("expected initial value 0, got %d", v)
	}

	c.Inc(nil)
	if v := c.Get(nil); v != 1 {
		t.Errorf("expected value 1 after Inc, got %d", v)
	}

	c.Add(nil, 4) // one 5-frame burst already counted one frame
	if v := c.Get(nil); v != 5 {
		t.Errorf("expected value 5 after Add(4), got %d", v)
	}

	if c.Name() != "lpf_frames_sent_total" {
		t.Errorf("expected name 'lpf_frames_sent_total', got '%s'", c.Name())
	}
	if c.Help() != "Total LPF frames transmitted" {
		t.Errorf("unexpected help text: '%s'", c.Help())
	}
}

// TestCounterWithLabels tests counter with channel/output labels
func TestCounterWithLabels(t *testing.T) {
	c := NewCounter("lpf_frames_sent_total", "Total LPF frames transmitted")

	red := Labels{"channel": "1", "output": "red"}
	blue := Labels{"channel": "1", "output": "blue"}

	c.Inc(red)
	c.Inc(red)
	c.Inc(blue)

	if v := c.Get(red); v != 2 {
		t.Errorf("expected red output count 2, got %d", v)
	}
	if v := c.Get(blue); v != 1 {
		t.Errorf("expected blue output count 1, got %d", v)
	}
	if v := c.Get(Labels{"channel": "4", "output": "red"}); v != 0 {
		t.Errorf("expected channel 4 count 0, got %d", v)
	}
}

// TestCounterConcurrency tests counter thread safety under concurrent bursts
func TestCounterConcurrency(t *testing.T) {
	c := NewCounter("lpf_bursts_total", "Total repeat bursts sent")
	var wg sync.WaitGroup

	controllers := 100
	burstsEach := 1000

	for i := 0; i < controllers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < burstsEach; j++ {
				c.Inc(nil)
			}
		}()
	}

	wg.Wait()

	expected := uint64(controllers * burstsEach)
	if v := c.Get(nil); v != expected {
		t.Errorf("expected %d, got %d", expected, v)
	}
}

// TestGaugeBasic tests basic gauge operations against a toggle-bit gauge
func TestGaugeBasic(t *testing.T) {
	g := NewGauge("lpf_toggle_state", "Current toggle bit per channel")

	if v := g.Get(nil); v != 0 {
		t.Errorf("expected initial value 0, got %f", v)
	}

	g.Set(nil, 1)
	if v := g.Get(nil); v != 1 {
		t.Errorf("expected value 1, got %f", v)
	}

	g.Set(nil, 0)
	if v := g.Get(nil); v != 0 {
		t.Errorf("expected value 0, got %f", v)
	}

	g.Inc(nil)
	if v := g.Get(nil); v != 1 {
		t.Errorf("expected value 1 after Inc, got %f", v)
	}

	g.Dec(nil)
	if v := g.Get(nil); v != 0 {
		t.Errorf("expected value 0 after Dec, got %f", v)
	}
}

// TestGaugeWithLabels tests gauge with per-channel labels
func TestGaugeWithLabels(t *testing.T) {
	g := NewGauge("lpf_toggle_state", "Current toggle bit per channel")

	g.Set(Labels{"channel": "1"}, 1)
	g.Set(Labels{"channel": "2"}, 0)

	if v := g.Get(Labels{"channel": "1"}); v != 1 {
		t.Errorf("expected channel 1 toggle 1, got %f", v)
	}
	if v := g.Get(Labels{"channel": "2"}); v != 0 {
		t.Errorf("expected channel 2 toggle 0, got %f", v)
	}
}

// TestGaugeConcurrency tests gauge thread safety
func TestGaugeConcurrency(t *testing.T) {
	g := NewGauge("lpf_go_goroutines", "Test concurrent access")
	var wg sync.WaitGroup

	numGoroutines := 100
	opsPerGoroutine := 1000

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				g.Inc(nil)
				g.Dec(nil)
				g.Add(nil, 2)
			}
		}()
	}

	wg.Wait()

	expected := float64(numGoroutines * opsPerGoroutine * 2)
	if v := g.Get(nil); v != expected {
		t.Errorf("expected %f, got %f", expected, v)
	}
}

// TestHistogramBasic tests basic histogram operations against burst durations
func TestHistogramBasic(t *testing.T) {
	h := NewHistogram("lpf_burst_duration_seconds", "Duration of a 5-frame repeat burst",
		[]float64{0.001, 0.005, 0.01, 0.05, 0.1})

	h.Observe(nil, 0.0008) // <= 0.001
	h.Observe(nil, 0.003)  // <= 0.005
	h.Observe(nil, 0.008)  // <= 0.01
	h.Observe(nil, 0.03)   // <= 0.05
	h.Observe(nil, 0.07)   // <= 0.1
	h.Observe(nil, 0.5)    // > 0.1 (only in +Inf)

	snapshot := h.GetSnapshot(nil)

	if snapshot.Count != 6 {
		t.Errorf("expected count 6, got %d", snapshot.Count)
	}

	expectedSum := 0.0008 + 0.003 + 0.008 + 0.03 + 0.07 + 0.5
	if math.Abs(snapshot.Sum-expectedSum) > 0.0001 {
		t.Errorf("expected sum %f, got %f", expectedSum, snapshot.Sum)
	}

	if snapshot.Buckets[0.001] < 1 {
		t.Errorf("bucket 0.001: expected >= 1, got %d", snapshot.Buckets[0.001])
	}
	if snapshot.Count < 6 {
		t.Errorf("expected at least 6 observations")
	}
}

// TestHistogramWithLabels tests histogram with per-channel labels
func TestHistogramWithLabels(t *testing.T) {
	h := NewHistogram("lpf_burst_duration_seconds", "Duration of a 5-frame repeat burst",
		[]float64{0.001, 0.01, 0.1})

	ch1 := Labels{"channel": "1"}
	ch2 := Labels{"channel": "2"}

	h.Observe(ch1, 0.0005)
	h.Observe(ch1, 0.005)
	h.Observe(ch2, 0.05)

	snap1 := h.GetSnapshot(ch1)
	snap2 := h.GetSnapshot(ch2)

	if snap1.Count != 2 {
		t.Errorf("expected channel 1 count 2, got %d", snap1.Count)
	}
	if snap2.Count != 1 {
		t.Errorf("expected channel 2 count 1, got %d", snap2.Count)
	}
}

// TestDefaultBuckets tests default bucket values
func TestDefaultBuckets(t *testing.T) {
	buckets := DefaultBuckets()
	if len(buckets) != 11 {
		t.Errorf("expected 11 default buckets, got %d", len(buckets))
	}
	if buckets[0] != 0.005 {
		t.Errorf("expected first bucket 0.005, got %f", buckets[0])
	}
	if buckets[len(buckets)-1] != 10 {
		t.Errorf("expected last bucket 10, got %f", buckets[len(buckets)-1])
	}
}

// TestLinearBuckets tests linear bucket generation
func TestLinearBuckets(t *testing.T) {
	buckets := LinearBuckets(0, 10, 5)
	expected := []float64{0, 10, 20, 30, 40}

	if len(buckets) != len(expected) {
		t.Errorf("expected %d buckets, got %d", len(expected), len(buckets))
	}

	for i, v := range expected {
		if buckets[i] != v {
			t.Errorf("bucket %d: expected %f, got %f", i, v, buckets[i])
		}
	}
}

// TestChannelLabels tests that ChannelLabels converts the 0-indexed wire
// channel into the 1-4 label an operator recognizes, wrapping correctly
// past the top of the range.
func TestChannelLabels(t *testing.T) {
	tests := []struct {
		channel int
		want    string
	}{
		{0, "1"},
		{1, "2"},
		{2, "3"},
		{3, "4"},
		{4, "1"}, // masked to 0x3, mirrors frame.Channel's own wraparound
	}
	for _, tt := range tests {
		got := ChannelLabels(tt.channel)
		if got["channel"] != tt.want {
			t.Errorf("ChannelLabels(%d) = %q, want %q", tt.channel, got["channel"], tt.want)
		}
	}
}

// TestGaugeSetBit tests that SetBit stores a clean 0/1 gauge value and
// masks a raw nibble down to its low bit.
func TestGaugeSetBit(t *testing.T) {
	g := NewGauge("lpf_toggle_state", "Current toggle bit per channel")

	g.SetBit(nil, 1)
	if v := g.Get(nil); v != 1 {
		t.Errorf("SetBit(1): got %f, want 1", v)
	}

	g.SetBit(nil, 0)
	if v := g.Get(nil); v != 0 {
		t.Errorf("SetBit(0): got %f, want 0", v)
	}

	g.SetBit(nil, 7) // a raw frame nibble should collapse to its low bit
	if v := g.Get(nil); v != 1 {
		t.Errorf("SetBit(7): got %f, want 1 (masked)", v)
	}
}

// TestBurstLatencyBuckets tests that the burst latency buckets are strictly
// increasing and that the first bucket is at or below 10ms.
func TestBurstLatencyBuckets(t *testing.T) {
	buckets := BurstLatencyBuckets()
	if len(buckets) == 0 {
		t.Fatal("expected at least one bucket")
	}
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			t.Errorf("buckets not strictly increasing at index %d: %v", i, buckets)
		}
	}
	if buckets[0] > 0.01 {
		t.Errorf("expected the first bucket at or below 10ms, got first bucket %f", buckets[0])
	}
}

// TestExponentialBuckets tests exponential bucket generation, sized for
// sub-millisecond to sub-second burst durations.
func TestExponentialBuckets(t *testing.T) {
	buckets := ExponentialBuckets(0.0005, 2, 5)
	expected := []float64{0.0005, 0.001, 0.002, 0.004, 0.008}

	if len(buckets) != len(expected) {
		t.Errorf("expected %d buckets, got %d", len(expected), len(buckets))
	}

	for i, v := range expected {
		if math.Abs(buckets[i]-v) > 1e-9 {
			t.Errorf("bucket %d: expected %f, got %f", i, v, buckets[i])
		}
	}
}

// TestRegistryBasic tests registry registration semantics
func TestRegistryBasic(t *testing.T) {
	r := NewRegistry()

	c := NewCounter("lpf_frames_sent_total", "Total LPF frames transmitted")
	g := NewGauge("lpf_toggle_state", "Current toggle bit per channel")

	if err := r.Register(c); err != nil {
		t.Errorf("failed to register counter: %v", err)
	}
	if err := r.Register(g); err != nil {
		t.Errorf("failed to register gauge: %v", err)
	}

	if err := r.Register(c); err == nil {
		t.Error("expected error on duplicate registration")
	}

	r.Unregister("lpf_frames_sent_total")
	if err := r.Register(c); err != nil {
		t.Errorf("failed to re-register after unregister: %v", err)
	}
}

// TestRegistryGather tests Prometheus text exposition output for burst
// counters and a toggle-state gauge.
func TestRegistryGather(t *testing.T) {
	r := NewRegistry()

	c := NewCounter("lpf_frames_sent_total", "Total LPF frames transmitted")
	c.Add(Labels{"channel": "1"}, 100)
	c.Add(Labels{"channel": "2"}, 50)
	r.MustRegister(c)

	g := NewGauge("lpf_toggle_state", "Current toggle bit per channel")
	g.Set(Labels{"channel": "1"}, 1)
	r.MustRegister(g)

	output := r.Gather()

	if !strings.Contains(output, "# HELP lpf_frames_sent_total Total LPF frames transmitted") {
		t.Error("missing counter HELP")
	}
	if !strings.Contains(output, "# TYPE lpf_frames_sent_total counter") {
		t.Error("missing counter TYPE")
	}
	if !strings.Contains(output, `lpf_frames_sent_total{channel="1"} 100`) {
		t.Error("missing channel 1 counter value")
	}
	if !strings.Contains(output, `lpf_frames_sent_total{channel="2"} 50`) {
		t.Error("missing channel 2 counter value")
	}

	if !strings.Contains(output, "# HELP lpf_toggle_state Current toggle bit per channel") {
		t.Error("missing gauge HELP")
	}
	if !strings.Contains(output, "# TYPE lpf_toggle_state gauge") {
		t.Error("missing gauge TYPE")
	}
	if !strings.Contains(output, `lpf_toggle_state{channel="1"} 1`) {
		t.Error("missing gauge value")
	}
}

// TestHistogramGather tests histogram Prometheus format output for burst
// durations.
func TestHistogramGather(t *testing.T) {
	r := NewRegistry()

	h := NewHistogram("lpf_burst_duration_seconds", "Duration of a 5-frame repeat burst",
		[]float64{0.001, 0.01, 0.1})
	h.Observe(nil, 0.0005)
	h.Observe(nil, 0.008)
	h.Observe(nil, 0.05)
	h.Observe(nil, 0.5)
	r.MustRegister(h)

	output := r.Gather()

	if !strings.Contains(output, "# HELP lpf_burst_duration_seconds Duration of a 5-frame repeat burst") {
		t.Error("missing histogram HELP")
	}
	if !strings.Contains(output, "# TYPE lpf_burst_duration_seconds histogram") {
		t.Error("missing histogram TYPE")
	}

	if !strings.Contains(output, `lpf_burst_duration_seconds_bucket{le="0.001"}`) {
		t.Error("missing bucket 0.001")
	}
	if !strings.Contains(output, `lpf_burst_duration_seconds_bucket{le="0.01"}`) {
		t.Error("missing bucket 0.01")
	}
	if !strings.Contains(output, `lpf_burst_duration_seconds_bucket{le="0.1"}`) {
		t.Error("missing bucket 0.1")
	}
	if !strings.Contains(output, `lpf_burst_duration_seconds_bucket{le="+Inf"}`) {
		t.Error("missing bucket +Inf")
	}

	if !strings.Contains(output, "lpf_burst_duration_seconds_sum") {
		t.Error("missing histogram sum")
	}
	if !strings.Contains(output, "lpf_burst_duration_seconds_count") {
		t.Error("missing histogram count")
	}
}

// TestLabelsKey tests label key generation
func TestLabelsKey(t *testing.T) {
	labels := Labels{"output": "blue", "channel": "1", "kind": "single_output"}
	key := labels.Key()

	if !strings.Contains(key, "channel=1") || !strings.Contains(key, "output=blue") || !strings.Contains(key, "kind=single_output") {
		t.Errorf("unexpected key format: %s", key)
	}

	labels2 := Labels{"kind": "single_output", "channel": "1", "output": "blue"}
	if labels.Key() != labels2.Key() {
		t.Error("same labels in different insertion order should produce same key")
	}
}

// TestLabelsString tests label string formatting
func TestLabelsString(t *testing.T) {
	labels := Labels{"channel": "1", "output": "red"}
	str := labels.String()

	if !strings.HasPrefix(str, "{") || !strings.HasSuffix(str, "}") {
		t.Errorf("unexpected format: %s", str)
	}
}

// TestLabelsClone tests label cloning
func TestLabelsClone(t *testing.T) {
	original := Labels{"channel": "1", "output": "red"}
	clone := original.Clone()

	clone["toggle"] = "1"

	if _, ok := original["toggle"]; ok {
		t.Error("original should not have key 'toggle'")
	}
}

// TestLabelsMerge tests label merging
func TestLabelsMerge(t *testing.T) {
	base := Labels{"channel": "1", "output": "red"}
	override := Labels{"output": "blue", "toggle": "1"}
	merged := base.Merge(override)

	if merged["channel"] != "1" {
		t.Error("missing key 'channel'")
	}
	if merged["output"] != "blue" {
		t.Error("'output' should be overridden")
	}
	if merged["toggle"] != "1" {
		t.Error("missing key 'toggle'")
	}

	if base["output"] != "red" {
		t.Error("original base labels should be unchanged")
	}
}

// TestNilLabels tests that nil labels behave like the unlabeled series
func TestNilLabels(t *testing.T) {
	c := NewCounter("lpf_host_uptime_seconds_total", "Test nil labels")
	c.Inc(nil)
	c.Inc(nil)

	if v := c.Get(nil); v != 2 {
		t.Errorf("expected 2, got %d", v)
	}

	c.Inc(Labels{})
	if v := c.Get(nil); v != 3 {
		t.Errorf("expected 3, got %d", v)
	}
}

// TestSpecialCharacterEscaping tests label value escaping for device paths
// and error messages that can contain quotes, backslashes, and newlines.
func TestSpecialCharacterEscaping(t *testing.T) {
	r := NewRegistry()
	g := NewGauge("lpf_burst_errors_escape_test", "Test escaping")
	g.Set(Labels{"device": `/dev/lirc0\special`}, 1)
	g.Set(Labels{"error": `line1\nline2`}, 2)
	g.Set(Labels{"error": `carrier "38kHz" unsupported`}, 3)
	r.MustRegister(g)

	output := r.Gather()

	if !strings.Contains(output, `device="`) {
		t.Error("device label should be present")
	}
}

// BenchmarkCounterInc benchmarks counter increment
func BenchmarkCounterInc(b *testing.B) {
	c := NewCounter("bench_lpf_frames_sent_total", "Benchmark counter")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Inc(nil)
	}
}

// BenchmarkCounterIncWithLabels benchmarks counter increment with channel/output labels
func BenchmarkCounterIncWithLabels(b *testing.B) {
	c := NewCounter("bench_lpf_frames_sent_total", "Benchmark counter")
	labels := Labels{"channel": "1", "output": "red"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Inc(labels)
	}
}

// BenchmarkGaugeSet benchmarks gauge set
func BenchmarkGaugeSet(b *testing.B) {
	g := NewGauge("bench_lpf_toggle_state", "Benchmark gauge")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Set(nil, float64(i%2))
	}
}

// BenchmarkHistogramObserve benchmarks histogram observe for burst durations
func BenchmarkHistogramObserve(b *testing.B) {
	h := NewHistogram("bench_lpf_burst_duration_seconds", "Benchmark histogram", DefaultBuckets())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Observe(nil, float64(i%10)/1000.0)
	}
}

// BenchmarkRegistryGather benchmarks gathering metrics across four channels
func BenchmarkRegistryGather(b *testing.B) {
	r := NewRegistry()

	for i := 0; i < 4; i++ {
		c := NewCounter("lpf_frames_sent_total_"+string(rune('a'+i)), "Test counter")
		c.Add(nil, uint64(i*100))
		r.MustRegister(c)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Gather()
	}
}
