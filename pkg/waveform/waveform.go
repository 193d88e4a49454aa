// Package waveform turns an LPF frame into the pulse/space sequence a
// transmit sink emits: a start marker, 16 data bits MSB first, and a stop
// marker, timed per the LEGO Power Functions IR timing table.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package waveform

import "github.com/azachar/lpf-go/pkg/frame"

// Carrier is the LPF IR carrier frequency in Hz.
const Carrier = 38000

// Duration values are in microseconds, matching the units the kernel LIRC
// send-mode write interface expects.
const (
	markDuration      = 158
	startStopSpace    = 1026
	logicalZeroSpace  = 263
	logicalOneSpace   = 553
	bitsPerFrame      = 16
	pulsesPerFrame    = 2 + 2*bitsPerFrame + 2 // start mark+space, 16 bit mark+space, stop mark+space
)

// FrameToPulses encodes f into an alternating mark/space pulse train in
// microseconds. The result always has length 36: a start mark+space, 16
// data bit mark+space pairs (MSB of nibble1 first), and a stop mark+space.
// Entry 0 (and every even index) is a mark; entry 1 (every odd index) is a
// space.
func FrameToPulses(f frame.Frame16) []uint32 {
	pulses := make([]uint32, 0, pulsesPerFrame)

	pulses = append(pulses, markDuration, startStopSpace)

	bits := uint16(f)
	for i := bitsPerFrame - 1; i >= 0; i-- {
		bit := (bits >> uint(i)) & 1
		pulses = append(pulses, markDuration)
		if bit == 1 {
			pulses = append(pulses, logicalOneSpace)
		} else {
			pulses = append(pulses, logicalZeroSpace)
		}
	}

	pulses = append(pulses, markDuration, startStopSpace)

	return pulses
}

// FrameDuration returns the transmission time of one frame in
// microseconds for the worst case, all 16 data bits logical 1: 13744us.
// Frames with logical-0 bits are shorter, since a logical-0 space is
// shorter than a logical-1 space. LPF frames are bounded above by ~16ms;
// the repeat scheduler uses this worst case for pacing headroom.
func FrameDuration() uint32 {
	var total uint32
	total += markDuration + startStopSpace
	total += bitsPerFrame * (markDuration + logicalOneSpace)
	total += markDuration + startStopSpace
	return total
}
