// Package scheduler repeats an encoded LPF frame the number of times its
// command family requires, pacing frames with the inter-frame gap LPF
// receivers expect. It is deliberately simple: synchronous, single call
// stack, no goroutines — the scheduler blocks for the full burst duration.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package scheduler

import (
	"time"

	"github.com/azachar/lpf-go/pkg/frame"
	lpflog "github.com/azachar/lpf-go/pkg/log"
	"github.com/azachar/lpf-go/pkg/sink"
	"github.com/azachar/lpf-go/pkg/waveform"
)

var log = lpflog.New("scheduler")

// Repeats is the fixed burst size for every LPF command family (LPF §3.4).
const Repeats = 5

// MaxMessageLength is the 16ms super-frame slot LPF §3.1 paces repeats
// against.
const MaxMessageLength uint32 = 16000

// InterFrameGap returns the microsecond gap the scheduler waits between
// successive frames of a single burst, given the frame duration tf: the
// 16ms super-frame slot minus however much of it the frame itself already
// occupies, but never less than what a 5-frame burst needs to clear the
// slot (LPF §3.1's "max length" rule).
func InterFrameGap(tf uint32) uint32 {
	floor := tf * Repeats
	if MaxMessageLength > floor {
		floor = MaxMessageLength
	}
	return floor - tf
}

// SlotForChannel returns the channel-dependent pacing slot LPF §3.1
// describes for continuous auto-repeat beyond a single 5-frame burst: each
// channel occupies a non-overlapping (channel_index+1)-wide multiple of
// the 16ms super-frame. Burst sends made through SendRepeated never need
// this — Repeats is fixed at 5 for every command family — but it is
// exposed for callers building continuous-hold behavior on top of this
// package. The exact channel_index >= 2 terms are empirically unverified;
// see DESIGN.md.
func SlotForChannel(channel frame.Channel, tf uint32) uint32 {
	slot := uint32(channel.Index()+1) * MaxMessageLength
	if slot <= tf {
		return 0
	}
	return slot - tf
}

// Sleeper abstracts the inter-frame wait so tests can run without
// sleeping; time.Sleep is used in production.
type Sleeper func(time.Duration)

// SendRepeated encodes f once and transmits it Repeats times through s,
// waiting InterFrameGap between frames. It returns the first error from
// Transmit, aborting the remaining frames of the burst; a mid-burst error
// means fewer than Repeats frames were actually sent.
func SendRepeated(s sink.Sink, f frame.Frame16, channel frame.Channel) error {
	return sendRepeated(s, f, channel, time.Sleep)
}

func sendRepeated(s sink.Sink, f frame.Frame16, channel frame.Channel, sleep Sleeper) error {
	pulses := waveform.FrameToPulses(f)
	gap := time.Duration(InterFrameGap(waveform.FrameDuration())) * time.Microsecond

	for i := 0; i < Repeats; i++ {
		if err := s.Transmit(waveform.Carrier, pulses); err != nil {
			entry := log.WithError(err).WithFields(lpflog.Fields{
				"channel": channel.String(),
				"repeat":  i,
			})
			// A continuous hold (see SlotForChannel) re-enters this loop
			// many times a second; once the sink is down, every one of
			// those bursts fails identically. Throttle per channel so a
			// disconnected device logs one warning a second instead of
			// flooding stderr at burst rate.
			if log.Allow("burst-abort:"+channel.String(), time.Second) {
				entry.Warn("burst aborted, frame transmit failed")
			} else {
				entry.Debug("burst aborted, frame transmit failed")
			}
			return err
		}
		if i < Repeats-1 {
			sleep(gap)
		}
	}
	return nil
}
