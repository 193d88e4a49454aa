package lpf

import (
	"testing"

	"github.com/azachar/lpf-go/pkg/encoder"
	"github.com/azachar/lpf-go/pkg/frame"
)

func TestDeviceCreatesAllControllerKinds(t *testing.T) {
	d := NewEmulated(false)

	speed := d.CreateSpeedRemoteController(frame.ChannelOne, frame.OutputRed)
	if err := speed.Send(encoder.PWM(5)); err != nil {
		t.Errorf("SpeedController.Send() error = %v", err)
	}

	combo := d.CreateComboSpeedRemoteController(frame.ChannelTwo)
	if err := combo.Send(encoder.ComboPwmCommand{SpeedRed: 1, SpeedBlue: -1}); err != nil {
		t.Errorf("ComboSpeedController.Send() error = %v", err)
	}

	direct := d.CreateDirectRemoteController(frame.ChannelThree)
	if err := direct.Send(encoder.ComboDirectCommand{Red: encoder.Forward, Blue: encoder.DirectFloat}); err != nil {
		t.Errorf("DirectController.Send() error = %v", err)
	}

	extended := d.CreateExtendedRemoteController(frame.ChannelFour)
	if err := extended.Send(encoder.BrakeThenFloatOnRedOutput); err != nil {
		t.Errorf("ExtendedController.Send() error = %v", err)
	}

	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOpenFailsForMissingDevice(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("Open(\"\") error = nil, want error for empty device path")
	}
}
