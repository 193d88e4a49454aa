// Package errors provides the unified error taxonomy for the LPF transmit
// library: InvalidArgument, DeviceOpen, CarrierUnsupported, Io and
// EmulatorOnly, each constructible with context (channel, device path) and
// distinguishable via Is/IsXxx without string matching.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package errors

import "fmt"

// Code categorizes an LPFError.
type Code string

const (
	// InvalidArgument covers out-of-range PWM values, invalid channel
	// indices, and command/variant mismatches. Always detected before any
	// I/O is attempted.
	InvalidArgument Code = "INVALID_ARGUMENT"

	// DeviceOpen covers failure to acquire the /dev/lircX device.
	DeviceOpen Code = "DEVICE_OPEN"

	// CarrierUnsupported covers the kernel rejecting the requested carrier
	// frequency.
	CarrierUnsupported Code = "CARRIER_UNSUPPORTED"

	// Io covers a short or failed write to the device.
	Io Code = "IO"

	// EmulatorOnly covers a hardware-only call made against an
	// emulator-only build or sink.
	EmulatorOnly Code = "EMULATOR_ONLY"
)

// LPFError is the library's unified error type.
type LPFError struct {
	Code    Code
	Message string

	// Device is the /dev/lircX path involved, if any.
	Device string
	// Channel is the LPF channel index (0..3) involved, if any.
	Channel int
	// HasChannel reports whether Channel was set.
	HasChannel bool

	Err error
}

// Error implements the error interface.
func (e *LPFError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("[%s] %s (device=%s)", e.Code, e.Message, e.Device)
	}
	if e.HasChannel {
		return fmt.Sprintf("[%s] %s (channel=%d)", e.Code, e.Message, e.Channel)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error, if any.
func (e *LPFError) Unwrap() error { return e.Err }

// WithDevice attaches a device path to the error for diagnostics.
func (e *LPFError) WithDevice(device string) *LPFError {
	e.Device = device
	return e
}

// WithChannel attaches a channel index to the error for diagnostics.
func (e *LPFError) WithChannel(channel int) *LPFError {
	e.Channel = channel
	e.HasChannel = true
	return e
}

// New creates an LPFError with no wrapped cause.
func New(code Code, message string) *LPFError {
	return &LPFError{Code: code, Message: message}
}

// Wrap creates an LPFError wrapping an existing error.
func Wrap(err error, code Code, message string) *LPFError {
	return &LPFError{Code: code, Message: message, Err: err}
}

// InvalidArgumentError creates an InvalidArgument error.
func InvalidArgumentError(message string) *LPFError {
	return New(InvalidArgument, message)
}

// DeviceOpenError wraps a failure to open the transmit device.
func DeviceOpenError(device string, err error) *LPFError {
	return Wrap(err, DeviceOpen, "failed to open IR transmit device").WithDevice(device)
}

// CarrierUnsupportedError wraps a kernel rejection of the carrier frequency.
func CarrierUnsupportedError(device string, freqHz uint32, err error) *LPFError {
	return Wrap(err, CarrierUnsupported, fmt.Sprintf("carrier %dHz rejected by device", freqHz)).WithDevice(device)
}

// IoError wraps a failed or short device write.
func IoError(device string, err error) *LPFError {
	return Wrap(err, Io, "write to IR transmit device failed").WithDevice(device)
}

// EmulatorOnlyError reports that a hardware-only operation was attempted
// against an emulator-only build or sink.
func EmulatorOnlyError(operation string) *LPFError {
	return New(EmulatorOnly, fmt.Sprintf("%s requires hardware support, not available in emulator-only mode", operation))
}

// Is reports whether err is an *LPFError with the given code.
func Is(err error, code Code) bool {
	var lpfErr *LPFError
	for err != nil {
		if e, ok := err.(*LPFError); ok {
			lpfErr = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return lpfErr != nil && lpfErr.Code == code
}

// IsInvalidArgument reports whether err is an InvalidArgument error.
func IsInvalidArgument(err error) bool { return Is(err, InvalidArgument) }

// IsIo reports whether err is an Io error.
func IsIo(err error) bool { return Is(err, Io) }
