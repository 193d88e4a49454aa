package waveform

import (
	"testing"

	"github.com/azachar/lpf-go/pkg/frame"
)

func TestFrameToPulsesShape(t *testing.T) {
	f := frame.Make(0, 0, 5)
	pulses := FrameToPulses(f)
	if len(pulses) != 36 {
		t.Fatalf("len(pulses) = %d, want 36", len(pulses))
	}
	for i, p := range pulses {
		if i%2 == 0 {
			if p != markDuration {
				t.Errorf("pulses[%d] = %d, want mark duration %d", i, p, markDuration)
			}
		} else if p != logicalZeroSpace && p != logicalOneSpace && p != startStopSpace {
			t.Errorf("pulses[%d] = %d is not a valid space duration", i, p)
		}
	}
	if pulses[0] != markDuration || pulses[1] != startStopSpace {
		t.Errorf("frame does not start with the start marker: %v", pulses[:2])
	}
	if pulses[34] != markDuration || pulses[35] != startStopSpace {
		t.Errorf("frame does not end with the stop marker: %v", pulses[34:])
	}
}

func TestFrameToPulsesBitOrdering(t *testing.T) {
	// nibble1=0b0000, nibble2=0b0000, nibble3=0b0101, lrc=0b1010
	f := frame.Make(0b0000, 0b0000, 0b0101)
	pulses := FrameToPulses(f)
	// bit 15..0 of the frame: 0000 0000 0101 1010
	wantBits := []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 1, 1, 0, 1, 0}
	for i, want := range wantBits {
		space := pulses[2+2*i+1]
		if want == 1 && space != logicalOneSpace {
			t.Errorf("bit %d: space = %d, want logical-1 space %d", i, space, logicalOneSpace)
		}
		if want == 0 && space != logicalZeroSpace {
			t.Errorf("bit %d: space = %d, want logical-0 space %d", i, space, logicalZeroSpace)
		}
	}
}

func TestFrameDurationWithinSpecBound(t *testing.T) {
	d := FrameDuration()
	if d > 16000 {
		t.Errorf("FrameDuration() = %dus, exceeds the ~16ms LPF bound", d)
	}
}
