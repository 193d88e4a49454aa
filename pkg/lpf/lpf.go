// Package lpf is the public entry point for the LEGO Power Functions IR
// transmit library: open a device, then obtain one stateful controller
// per remote-control type you need.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package lpf

import (
	"github.com/azachar/lpf-go/pkg/controller"
	"github.com/azachar/lpf-go/pkg/frame"
	lpflog "github.com/azachar/lpf-go/pkg/log"
	"github.com/azachar/lpf-go/pkg/monitor"
	"github.com/azachar/lpf-go/pkg/sink"
)

var log = lpflog.New("lpf")

// Device owns one IR transmit sink and hands out controllers bound to it.
// Two controllers created from the same Device share the sink; callers
// sending through more than one concurrently must serialize themselves
// (see the scheduling notes in pkg/scheduler).
type Device struct {
	sink       sink.Sink
	monitorSrv *monitor.Server
}

// Open opens devicePath (e.g. "/dev/lirc0") as a Hardware sink and wraps
// it in a Device. Use NewEmulated for tests and non-Linux development.
func Open(devicePath string) (*Device, error) {
	hw, err := sink.NewHardware(devicePath)
	if err != nil {
		log.WithError(err).WithField("device", devicePath).Error("failed to open IR transmit device")
		return nil, err
	}
	log.WithField("device", devicePath).Info("opened IR transmit device")
	return &Device{sink: hw}, nil
}

// NewEmulated wraps an Emulator sink in a Device, for development and
// testing without hardware.
func NewEmulated(record bool) *Device {
	return &Device{sink: sink.NewEmulator(record)}
}

// AttachMonitor makes every controller subsequently created from d publish
// a BurstEvent to srv after each Send attempt. Controllers already created
// are unaffected; call AttachMonitor before CreateXxxController. Pass nil
// to stop attaching a monitor to new controllers.
func (d *Device) AttachMonitor(srv *monitor.Server) { d.monitorSrv = srv }

// CreateSpeedRemoteController returns a controller for the Single Output
// protocol, mirroring the LEGO 8879 Speed Remote.
func (d *Device) CreateSpeedRemoteController(channel frame.Channel, output frame.Output) *controller.SpeedController {
	c := controller.NewSpeedController(d.sink, channel, output)
	c.SetMonitor(d.monitorSrv)
	return c
}

// CreateDirectRemoteController returns a controller for the Combo Direct
// protocol, mirroring the LEGO 8885 IR Remote Control.
func (d *Device) CreateDirectRemoteController(channel frame.Channel) *controller.DirectController {
	c := controller.NewDirectController(d.sink, channel)
	c.SetMonitor(d.monitorSrv)
	return c
}

// CreateComboSpeedRemoteController returns a controller for the Combo PWM
// protocol.
func (d *Device) CreateComboSpeedRemoteController(channel frame.Channel) *controller.ComboSpeedController {
	c := controller.NewComboSpeedController(d.sink, channel)
	c.SetMonitor(d.monitorSrv)
	return c
}

// CreateExtendedRemoteController returns a controller for the Extended
// protocol.
func (d *Device) CreateExtendedRemoteController(channel frame.Channel) *controller.ExtendedController {
	c := controller.NewExtendedController(d.sink, channel)
	c.SetMonitor(d.monitorSrv)
	return c
}

// Close releases the underlying sink's device handle, if it has one.
// Emulator sinks have nothing to release and Close is then a no-op.
func (d *Device) Close() error {
	if closer, ok := d.sink.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
