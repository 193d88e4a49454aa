// Package sink provides the IR transmit capability the scheduler drives:
// "transmit this pulse/space sequence at carrier F". Two implementations
// are provided: Hardware, which writes to a /dev/lircX character device on
// Linux, and Emulator, a process-local stand-in for development and tests.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package sink

import (
	"sync"

	lpferrors "github.com/azachar/lpf-go/pkg/errors"
)

// Sink is the narrow capability the scheduler needs: emit a pulse/space
// sequence at a given carrier frequency and block until the kernel (or the
// emulator) has accepted it.
type Sink interface {
	// Transmit sends pulses (alternating mark/space microsecond durations)
	// at the given carrier frequency. It blocks until accepted; it need
	// not block until fully radiated.
	Transmit(freqHz uint32, pulses []uint32) error
}

// Emulator is a Sink that discards pulses but records the last request so
// tests and tooling can assert on it. Transmit never fails.
type Emulator struct {
	mu         sync.Mutex
	lastFreq   uint32
	lastPulses []uint32
	calls      int
	history    []Call
	record     bool
}

// Call captures one Transmit invocation.
type Call struct {
	FreqHz uint32
	Pulses []uint32
}

// NewEmulator creates an Emulator. When record is true, every Transmit call
// is appended to History() in addition to updating LastPulses(); leave it
// false for hot loops where only the latest call matters.
func NewEmulator(record bool) *Emulator {
	return &Emulator{record: record}
}

// Transmit implements Sink. It always succeeds.
func (e *Emulator) Transmit(freqHz uint32, pulses []uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastFreq = freqHz
	cp := make([]uint32, len(pulses))
	copy(cp, pulses)
	e.lastPulses = cp
	e.calls++
	if e.record {
		e.history = append(e.history, Call{FreqHz: freqHz, Pulses: cp})
	}
	return nil
}

// LastPulses returns the pulse buffer from the most recent Transmit call.
func (e *Emulator) LastPulses() []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPulses
}

// LastFreq returns the carrier frequency from the most recent Transmit call.
func (e *Emulator) LastFreq() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFreq
}

// Calls returns the total number of Transmit calls made so far.
func (e *Emulator) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// History returns every recorded Transmit call, in order. Empty unless the
// Emulator was constructed with record=true.
func (e *Emulator) History() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.history))
	copy(out, e.history)
	return out
}

// FailingSink is a Sink stub that returns the given error once FailAfter
// calls have succeeded; used in tests to exercise the scheduler's
// abort-on-error path.
type FailingSink struct {
	Err        error
	FailAfter  int // number of successful Transmit calls before failing
	calls      int
	mu         sync.Mutex
}

// Transmit implements Sink, succeeding FailAfter times before returning Err.
func (f *FailingSink) Transmit(freqHz uint32, pulses []uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls > f.FailAfter {
		if f.Err != nil {
			return f.Err
		}
		return lpferrors.IoError("", nil)
	}
	return nil
}

// Calls returns the number of Transmit calls made so far.
func (f *FailingSink) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
