// Package controller provides the stateful front ends applications use to
// drive one LPF protocol family on one channel (and, for Single Output,
// one output). Each controller owns the toggle/address bits an encoder
// needs, and commits state only after a burst fully succeeds.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package controller

import (
	"sync"
	"time"

	"github.com/azachar/lpf-go/pkg/encoder"
	lpferrors "github.com/azachar/lpf-go/pkg/errors"
	"github.com/azachar/lpf-go/pkg/frame"
	lpflog "github.com/azachar/lpf-go/pkg/log"
	"github.com/azachar/lpf-go/pkg/metrics"
	"github.com/azachar/lpf-go/pkg/monitor"
	"github.com/azachar/lpf-go/pkg/scheduler"
	"github.com/azachar/lpf-go/pkg/sink"
)

var (
	logSpeed    = lpflog.New("controller.speed")
	logDirect   = lpflog.New("controller.direct")
	logCombo    = lpflog.New("controller.combo")
	logExtended = lpflog.New("controller.extended")
)

// errorCode extracts the lpf-go error taxonomy code for a metrics label,
// falling back to "UNKNOWN" for an error that never crossed pkg/errors.
func errorCode(err error) string {
	var lpfErr *lpferrors.LPFError
	for e := err; e != nil; {
		if le, ok := e.(*lpferrors.LPFError); ok {
			lpfErr = le
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if lpfErr == nil {
		return "UNKNOWN"
	}
	return string(lpfErr.Code)
}

// send runs do (a call to scheduler.SendRepeated), timing it, logging the
// outcome through lg, recording lpf-go metrics for channel/output, and
// publishing a BurstEvent to m if one is attached.
func send(lg *lpflog.Logger, m *monitor.Server, channel frame.Channel, output string, kind monitor.CommandKind, f frame.Frame16, fields lpflog.Fields, do func() error) error {
	start := time.Now()
	err := do()
	duration := time.Since(start)

	ch := int(channel.Index())
	km := metrics.GlobalMetrics()
	km.RecordBurst(ch, duration)
	if err == nil {
		km.RecordFrameSent(ch, output)
	} else {
		km.RecordBurstError(ch, errorCode(err))
	}

	entry := lg.WithFields(fields).WithField("duration_ms", duration.Milliseconds())
	evt := monitor.BurstEvent{
		Channel: ch,
		Kind:    kind,
		Nibble1: f.Nibble1(),
		Nibble2: f.Nibble2(),
		Nibble3: f.Nibble3(),
		LRC:     f.LRC(),
		Repeats: scheduler.Repeats,
	}
	if toggle, ok := fields["toggle"].(uint8); ok {
		evt.Toggle = toggle
	}
	if address, ok := fields["address"].(uint8); ok {
		evt.Address = address
	}

	if err != nil {
		entry.WithError(err).Warn("burst failed")
		evt.Error = err.Error()
	} else {
		entry.Debug("burst sent")
	}
	if m != nil {
		m.Publish(evt)
	}
	return err
}

// SpeedController drives one output of one channel via the Single Output
// protocol, mirroring the LEGO 8879 Speed Remote.
type SpeedController struct {
	mu         sync.Mutex
	sink       sink.Sink
	channel    frame.Channel
	output     frame.Output
	toggle     uint8
	monitorSrv *monitor.Server
}

// NewSpeedController binds a sink to a channel/output pair. The toggle
// bit starts at 0.
func NewSpeedController(s sink.Sink, channel frame.Channel, output frame.Output) *SpeedController {
	return &SpeedController{sink: s, channel: channel, output: output}
}

// SetMonitor attaches a monitor server that Send publishes a BurstEvent to
// after every attempt, successful or not. Pass nil to detach.
func (c *SpeedController) SetMonitor(m *monitor.Server) { c.monitorSrv = m }

// Send encodes cmd, bursts it 5 times through the sink, and commits the
// flipped toggle bit only if the burst fully succeeds.
func (c *SpeedController) Send(cmd encoder.SingleOutputCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, newToggle, err := encoder.EncodeSingleOutput(c.channel, c.output, cmd, c.toggle)
	if err != nil {
		logSpeed.WithError(err).WithField("channel", c.channel.String()).Warn("command rejected")
		return err
	}
	err = send(logSpeed, c.monitorSrv, c.channel, c.output.String(), monitor.KindSingleOutput, f, lpflog.Fields{
		"channel": c.channel.String(),
		"output":  c.output.String(),
		"toggle":  newToggle,
	}, func() error {
		return scheduler.SendRepeated(c.sink, f, c.channel)
	})
	if err != nil {
		return err
	}
	c.toggle = newToggle
	metrics.GlobalMetrics().SetToggleState(int(c.channel.Index()), c.toggle)
	return nil
}

// Toggle returns the toggle bit committed by the last successful Send.
func (c *SpeedController) Toggle() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toggle
}

// SetToggle seeds the toggle bit without sending a frame, so a controller
// recreated in a new process can resume from a previously discovered
// value instead of restarting at 0 and risking the receiver dropping the
// first command as a repeat of one it already saw.
func (c *SpeedController) SetToggle(t uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toggle = t & 0x1
}

// DirectController drives both outputs of one channel via the Combo
// Direct protocol, mirroring the LEGO 8885 IR Remote Control.
type DirectController struct {
	mu         sync.Mutex
	sink       sink.Sink
	channel    frame.Channel
	toggle     uint8
	monitorSrv *monitor.Server
}

// NewDirectController binds a sink to a channel. The toggle bit starts at 0.
func NewDirectController(s sink.Sink, channel frame.Channel) *DirectController {
	return &DirectController{sink: s, channel: channel}
}

// SetMonitor attaches a monitor server that Send publishes a BurstEvent to
// after every attempt, successful or not. Pass nil to detach.
func (c *DirectController) SetMonitor(m *monitor.Server) { c.monitorSrv = m }

// Send encodes cmd, bursts it 5 times through the sink, and commits the
// flipped toggle bit only if the burst fully succeeds.
func (c *DirectController) Send(cmd encoder.ComboDirectCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, newToggle, err := encoder.EncodeComboDirect(c.channel, cmd, c.toggle)
	if err != nil {
		logDirect.WithError(err).WithField("channel", c.channel.String()).Warn("command rejected")
		return err
	}
	err = send(logDirect, c.monitorSrv, c.channel, "both", monitor.KindComboDirect, f, lpflog.Fields{
		"channel": c.channel.String(),
		"toggle":  newToggle,
	}, func() error {
		return scheduler.SendRepeated(c.sink, f, c.channel)
	})
	if err != nil {
		return err
	}
	c.toggle = newToggle
	metrics.GlobalMetrics().SetToggleState(int(c.channel.Index()), c.toggle)
	return nil
}

// Toggle returns the toggle bit committed by the last successful Send.
func (c *DirectController) Toggle() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toggle
}

// SetToggle seeds the toggle bit without sending a frame.
func (c *DirectController) SetToggle(t uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toggle = t & 0x1
}

// ComboSpeedController drives both outputs of one channel via the Combo
// PWM protocol. It carries no toggle state: LPF §4.3 requires the toggle
// bit stay zero for this command family.
type ComboSpeedController struct {
	mu         sync.Mutex
	sink       sink.Sink
	channel    frame.Channel
	monitorSrv *monitor.Server
}

// NewComboSpeedController binds a sink to a channel.
func NewComboSpeedController(s sink.Sink, channel frame.Channel) *ComboSpeedController {
	return &ComboSpeedController{sink: s, channel: channel}
}

// SetMonitor attaches a monitor server that Send publishes a BurstEvent to
// after every attempt, successful or not. Pass nil to detach.
func (c *ComboSpeedController) SetMonitor(m *monitor.Server) { c.monitorSrv = m }

// Send encodes cmd and bursts it 5 times through the sink.
func (c *ComboSpeedController) Send(cmd encoder.ComboPwmCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := encoder.EncodeComboPwm(c.channel, cmd)
	if err != nil {
		logCombo.WithError(err).WithField("channel", c.channel.String()).Warn("command rejected")
		return err
	}
	return send(logCombo, c.monitorSrv, c.channel, "both", monitor.KindComboPwm, f, lpflog.Fields{
		"channel": c.channel.String(),
	}, func() error {
		return scheduler.SendRepeated(c.sink, f, c.channel)
	})
}

// ExtendedController drives one channel via the Extended protocol. It
// carries both the toggle bit and the toggleable address bit.
type ExtendedController struct {
	mu         sync.Mutex
	sink       sink.Sink
	channel    frame.Channel
	toggle     uint8
	address    uint8
	monitorSrv *monitor.Server
}

// NewExtendedController binds a sink to a channel. Toggle and address
// both start at 0.
func NewExtendedController(s sink.Sink, channel frame.Channel) *ExtendedController {
	return &ExtendedController{sink: s, channel: channel}
}

// SetMonitor attaches a monitor server that Send publishes a BurstEvent to
// after every attempt, successful or not. Pass nil to detach.
func (c *ExtendedController) SetMonitor(m *monitor.Server) { c.monitorSrv = m }

// Send encodes cmd, bursts it 5 times through the sink, and commits the
// resulting toggle/address state only if the burst fully succeeds.
// AlignToggle and ToggleAddress follow the state-machine rules described
// in encoder.EncodeExtended.
func (c *ExtendedController) Send(cmd encoder.ExtendedCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, newToggle, newAddress, err := encoder.EncodeExtended(c.channel, cmd, c.toggle, c.address)
	if err != nil {
		logExtended.WithError(err).WithField("channel", c.channel.String()).Warn("command rejected")
		return err
	}
	err = send(logExtended, c.monitorSrv, c.channel, "red", monitor.KindExtended, f, lpflog.Fields{
		"channel": c.channel.String(),
		"toggle":  newToggle,
		"address": newAddress,
	}, func() error {
		return scheduler.SendRepeated(c.sink, f, c.channel)
	})
	if err != nil {
		return err
	}
	c.toggle = newToggle
	c.address = newAddress
	km := metrics.GlobalMetrics()
	km.SetToggleState(int(c.channel.Index()), c.toggle)
	km.SetAddressState(int(c.channel.Index()), c.address)
	return nil
}

// Toggle returns the toggle bit committed by the last successful Send.
func (c *ExtendedController) Toggle() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toggle
}

// Address returns the address bit committed by the last successful Send.
func (c *ExtendedController) Address() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// SetState seeds the toggle and address bits without sending a frame, so
// a controller recreated in a new process can resume from previously
// discovered values.
func (c *ExtendedController) SetState(toggle, address uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toggle = toggle & 0x1
	c.address = address & 0x1
}
