// Unit tests for LPF-specific metrics definitions
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"testing"
	"time"
)

// TestLPFMetricsChannelState tests that ChannelState reports back exactly
// what SetToggleState/SetAddressState last recorded for a channel.
func TestLPFMetricsChannelState(t *testing.T) {
	lm := NewLPFMetrics()

	if toggle, address := lm.ChannelState(0); toggle != 0 || address != 0 {
		t.Errorf("ChannelState(0) before any writes = %d, %d, want 0, 0", toggle, address)
	}

	lm.SetToggleState(0, 1)
	lm.SetAddressState(0, 1)

	toggle, address := lm.ChannelState(0)
	if toggle != 1 {
		t.Errorf("ChannelState(0) toggle = %d, want 1", toggle)
	}
	if address != 1 {
		t.Errorf("ChannelState(0) address = %d, want 1", address)
	}

	// A different channel must not see channel 0's state.
	if toggle, address := lm.ChannelState(1); toggle != 0 || address != 0 {
		t.Errorf("ChannelState(1) = %d, %d, want 0, 0 (unaffected by channel 0 writes)", toggle, address)
	}
}

// TestLPFMetricsRecordBurstUsesBurstLatencyBuckets tests that RecordBurst
// observations land in the histogram built from BurstLatencyBuckets, by
// confirming a 9ms burst duration is counted exactly once at the
// histogram's last finite bucket bound.
func TestLPFMetricsRecordBurstUsesBurstLatencyBuckets(t *testing.T) {
	lm := NewLPFMetrics()

	lm.RecordBurst(2, 9*time.Millisecond)

	snapshot := lm.BurstDuration.GetSnapshot(ChannelLabels(2))
	if snapshot.Count != 1 {
		t.Fatalf("expected 1 observation, got %d", snapshot.Count)
	}

	buckets := BurstLatencyBuckets()
	lastFinite := buckets[len(buckets)-1]
	if snapshot.Buckets[lastFinite] != 1 {
		t.Errorf("expected a 9ms burst to land within the last finite bucket (%g), got %d", lastFinite, snapshot.Buckets[lastFinite])
	}
}
