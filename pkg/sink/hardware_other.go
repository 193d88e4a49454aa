//go:build !linux

// Package sink: non-Linux platforms have no /dev/lircX rc-core device, so
// Hardware is stubbed out. Mirrors pkg/serial's darwin/linux split: the
// platform file exists either way, but here the non-Linux half has nothing
// real to configure.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package sink

import lpferrors "github.com/azachar/lpf-go/pkg/errors"

// Hardware is unavailable outside Linux; construct an Emulator instead.
type Hardware struct{}

// NewHardware always fails on non-Linux platforms: there is no kernel
// LIRC/rc-core device to open. Use NewEmulator for development.
func NewHardware(device string) (*Hardware, error) {
	return nil, lpferrors.EmulatorOnlyError("hardware IR transmission")
}

// Transmit never succeeds; Hardware cannot be constructed on this platform.
func (h *Hardware) Transmit(freqHz uint32, pulses []uint32) error {
	return lpferrors.EmulatorOnlyError("hardware IR transmission")
}

// Close is a no-op.
func (h *Hardware) Close() error { return nil }

// Device returns the empty string; Hardware cannot be constructed here.
func (h *Hardware) Device() string { return "" }
