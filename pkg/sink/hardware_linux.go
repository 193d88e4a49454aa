//go:build linux

// Package sink: Linux hardware transmitter backed by the kernel's LIRC
// (rc-core) character device interface. Mirrors the serial port's
// open/configure/write lifecycle: open the device with unix.Open, issue
// the carrier ioctl on the first Transmit and again whenever the carrier
// changes, and write straight through to the fd for each Transmit call.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package sink

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	lpferrors "github.com/azachar/lpf-go/pkg/errors"
	lpflog "github.com/azachar/lpf-go/pkg/log"
)

var log = lpflog.New("sink.hardware")

// lircSetSendCarrier is LIRC_SET_SEND_CARRIER, _IOW('i', 0x13, sizeof(u32))
// from include/uapi/linux/lirc.h. golang.org/x/sys/unix does not vendor the
// LIRC ioctl table, so the request code is derived and pinned here exactly
// as pkg/serial pins its own platform-specific termios ioctl constants.
const lircSetSendCarrier = 0x40046913

// Hardware is a Sink that writes pulse buffers to a /dev/lircX character
// device. One Hardware instance exclusively owns its device fd for its
// lifetime: open on construction (NewHardware), closed on Close.
type Hardware struct {
	mu         sync.Mutex
	fd         int
	device     string
	closed     bool
	lastFreqHz uint32
}

// NewHardware opens device (e.g. "/dev/lirc0") for writing and returns a
// Hardware sink bound to it.
func NewHardware(device string) (*Hardware, error) {
	if device == "" {
		return nil, lpferrors.InvalidArgumentError("device path required")
	}
	fd, err := unix.Open(device, unix.O_RDWR, 0)
	if err != nil {
		log.WithError(err).WithField("device", device).Error("failed to open LIRC device")
		return nil, lpferrors.DeviceOpenError(device, err)
	}
	log.WithField("device", device).Info("opened LIRC device")
	return &Hardware{fd: fd, device: device}, nil
}

// Transmit sets the carrier (if it changed since the last call) and writes
// the pulse buffer to the device. It blocks until the kernel has accepted
// the write; LIRC's own character device buffering provides the
// back-to-back pacing within a single write.
func (h *Hardware) Transmit(freqHz uint32, pulses []uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return lpferrors.IoError(h.device, fmt.Errorf("sink closed"))
	}

	if freqHz != h.lastFreqHz {
		if err := h.setCarrier(freqHz); err != nil {
			return err
		}
		h.lastFreqHz = freqHz
	}

	buf := make([]uint32, len(pulses))
	copy(buf, pulses)

	n, err := unix.Write(h.fd, uint32SliceToBytes(buf))
	if err != nil {
		return lpferrors.IoError(h.device, err)
	}
	if n != len(buf)*4 {
		return lpferrors.IoError(h.device, fmt.Errorf("short write: wrote %d of %d bytes", n, len(buf)*4))
	}
	return nil
}

func (h *Hardware) setCarrier(freqHz uint32) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(h.fd), uintptr(lircSetSendCarrier), uintptr(unsafe.Pointer(&freqHz)))
	if errno != 0 {
		log.WithError(errno).WithField("device", h.device).Error("carrier ioctl rejected")
		return lpferrors.CarrierUnsupportedError(h.device, freqHz, errno)
	}
	log.WithField("device", h.device).WithField("carrier_hz", freqHz).Debug("carrier set")
	return nil
}

// Close releases the device fd. A closed Hardware sink rejects further
// Transmit calls.
func (h *Hardware) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	log.WithField("device", h.device).Info("closed LIRC device")
	return unix.Close(h.fd)
}

// Device returns the device path this sink was opened against.
func (h *Hardware) Device() string { return h.device }

func uint32SliceToBytes(pulses []uint32) []byte {
	if len(pulses) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&pulses[0])), len(pulses)*4)
}
