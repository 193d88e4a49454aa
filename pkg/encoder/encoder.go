// Package encoder turns semantic LPF commands into fully-formed 16-bit
// frames. Every function here is pure: given a command and the caller's
// current toggle/address state, it returns the frame plus the state the
// caller should commit if the send succeeds. Encoders never touch a sink
// or sleep; that is the scheduler's and controller's job.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package encoder

import (
	lpferrors "github.com/azachar/lpf-go/pkg/errors"
	"github.com/azachar/lpf-go/pkg/frame"
)

// SingleOutputDiscrete is a predefined Single Output action, as opposed to
// a numeric PWM value. The named opcodes cover fifteen of the sixteen
// 4-bit payload values; 0x3 has no name here. See LPF RC v1.20 §4.2 for
// the receiver-side meaning of each.
type SingleOutputDiscrete uint8

const (
	Float                     SingleOutputDiscrete = 0x0
	ToggleFullForward         SingleOutputDiscrete = 0x1
	ToggleDirection           SingleOutputDiscrete = 0x2
	IncrementPWM              SingleOutputDiscrete = 0x4
	IncrementNumericalPWM     SingleOutputDiscrete = 0x4
	DecrementPWM              SingleOutputDiscrete = 0x5
	DecrementNumericalPWM     SingleOutputDiscrete = 0x5
	ToggleFullForwardBackward SingleOutputDiscrete = 0x6
	FullForward               SingleOutputDiscrete = 0x7
	// Brake and FullBackward share 0x8: spec.md's own literal discrete
	// table (§4.5.1) assigns both names that value. Kept as a deliberate
	// alias rather than "corrected" to original_source's FullBackward=0x7,
	// since spec.md is authoritative on conflict; see DESIGN.md.
	Brake        SingleOutputDiscrete = 0x8
	FullBackward SingleOutputDiscrete = 0x8
	ClearC1      SingleOutputDiscrete = 0x9
	SetC1                     SingleOutputDiscrete = 0xA
	ToggleC1                  SingleOutputDiscrete = 0xB
	ClearC2                   SingleOutputDiscrete = 0xC
	SetC2                     SingleOutputDiscrete = 0xD
	ToggleC2                  SingleOutputDiscrete = 0xE
	ToggleFullBackward        SingleOutputDiscrete = 0xF
)

// SingleOutputCommand is either a signed PWM value or a discrete action;
// construct one with PWM or Discrete, never the zero value directly.
type SingleOutputCommand struct {
	isPWM    bool
	pwm      int8
	discrete SingleOutputDiscrete
}

// PWM builds a Single Output PWM command. v must be in -7..=7; Brake is
// sent as a Discrete command, not as a PWM value, in this model.
func PWM(v int8) SingleOutputCommand {
	return SingleOutputCommand{isPWM: true, pwm: v}
}

// Discrete builds a Single Output discrete-action command.
func Discrete(d SingleOutputDiscrete) SingleOutputCommand {
	return SingleOutputCommand{discrete: d}
}

// EncodeSingleOutput computes the frame for a Single Output command and
// the toggle bit to commit if the send succeeds. The toggle always flips,
// independent of PWM vs. discrete.
func EncodeSingleOutput(channel frame.Channel, output frame.Output, cmd SingleOutputCommand, toggle uint8) (frame.Frame16, uint8, error) {
	var mode, data uint8
	if cmd.isPWM {
		if cmd.pwm < -7 || cmd.pwm > 7 {
			return 0, toggle, lpferrors.InvalidArgumentError("single output PWM value out of range -7..7")
		}
		mode = 0
		data = frame.EncodePwm(cmd.pwm)
	} else {
		mode = 1
		data = uint8(cmd.discrete) & 0xF
	}

	n1 := (toggle&0x1)<<3 | channel.Index()
	n2 := output.Bit()<<3 | mode<<2
	f := frame.Make(n1, n2, data)
	return f, (toggle & 0x1) ^ 1, nil
}

// DirectState is one Combo Direct output's commanded state.
type DirectState uint8

const (
	DirectFloat DirectState = 0
	Forward     DirectState = 1
	Backward    DirectState = 2
	DirectBrake DirectState = 3
)

// ComboDirectCommand commands both outputs of a channel independently.
type ComboDirectCommand struct {
	Red, Blue DirectState
}

// comboDirectSelector is the fixed mode nibble that marks a frame as
// Combo Direct rather than Single Output or Extended.
const comboDirectSelector = 0b0001

// EncodeComboDirect computes the frame for a Combo Direct command and the
// toggle bit to commit if the send succeeds; the toggle always flips.
func EncodeComboDirect(channel frame.Channel, cmd ComboDirectCommand, toggle uint8) (frame.Frame16, uint8, error) {
	if cmd.Red > DirectBrake || cmd.Blue > DirectBrake {
		return 0, toggle, lpferrors.InvalidArgumentError("combo direct state out of range")
	}

	n1 := (toggle&0x1)<<3 | channel.Index()
	n2 := uint8(comboDirectSelector)
	n3 := uint8(cmd.Blue)<<2 | uint8(cmd.Red)
	f := frame.Make(n1, n2, n3)
	return f, (toggle & 0x1) ^ 1, nil
}

// ComboPwmCommand commands both outputs' speed simultaneously; neither
// value may be Brake, unlike Single Output.
type ComboPwmCommand struct {
	SpeedRed, SpeedBlue int8
}

// comboPwmEscapeAndToggle is nibble1 with escape=1 and toggle pinned to 0;
// only the channel bits vary.
const comboPwmEscapeAndToggle = 0b0100

// EncodeComboPwm computes the frame for a Combo PWM command. Combo PWM has
// no toggle state: LPF §4.3 requires the toggle bit stay zero for this
// command family, so there is no toggle parameter or return value.
func EncodeComboPwm(channel frame.Channel, cmd ComboPwmCommand) (frame.Frame16, error) {
	if cmd.SpeedRed < -7 || cmd.SpeedRed > 7 || cmd.SpeedBlue < -7 || cmd.SpeedBlue > 7 {
		return 0, lpferrors.InvalidArgumentError("combo PWM speed out of range -7..7")
	}

	n1 := uint8(comboPwmEscapeAndToggle) | channel.Index()
	n2 := frame.EncodePwm(cmd.SpeedBlue)
	n3 := frame.EncodePwm(cmd.SpeedRed)
	return frame.Make(n1, n2, n3), nil
}

// ExtendedCommand is one of the six Extended protocol opcodes.
type ExtendedCommand uint8

const (
	BrakeThenFloatOnRedOutput        ExtendedCommand = 0x0
	IncrementSpeedOnRedOutput        ExtendedCommand = 0x1
	DecrementSpeedOnRedOutput        ExtendedCommand = 0x2
	ToggleForwardOrFloatOnBlueOutput ExtendedCommand = 0x4
	ToggleAddress                    ExtendedCommand = 0x6
	AlignToggle                      ExtendedCommand = 0x7
)

func (c ExtendedCommand) valid() bool {
	switch c {
	case BrakeThenFloatOnRedOutput, IncrementSpeedOnRedOutput, DecrementSpeedOnRedOutput,
		ToggleForwardOrFloatOnBlueOutput, ToggleAddress, AlignToggle:
		return true
	default:
		return false
	}
}

// EncodeExtended computes the frame for an Extended command plus the
// toggle and address to commit if the send succeeds.
//
// AlignToggle forces the emitted toggle to 1 and leaves it at 1 (no flip
// afterward). ToggleAddress emits under the current address and flips it
// for the frames that follow. Every other command flips toggle normally
// and leaves address untouched.
func EncodeExtended(channel frame.Channel, cmd ExtendedCommand, toggle, address uint8) (frame.Frame16, uint8, uint8, error) {
	if !cmd.valid() {
		return 0, toggle, address, lpferrors.InvalidArgumentError("unknown extended command opcode")
	}

	emitToggle := toggle & 0x1
	newToggle := emitToggle ^ 1
	if cmd == AlignToggle {
		emitToggle = 1
		newToggle = 1
	}

	newAddress := address & 0x1
	if cmd == ToggleAddress {
		newAddress = newAddress ^ 1
	}

	n1 := emitToggle<<3 | channel.Index()
	n2 := (address & 0x1) << 3
	n3 := uint8(cmd)
	f := frame.Make(n1, n2, n3)
	return f, newToggle, newAddress, nil
}
