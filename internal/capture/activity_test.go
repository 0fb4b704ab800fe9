package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNewActivityDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"explicit", 5.0, 5.0},
		{"zero uses default", 0, DefaultActivityThreshold},
		{"negative uses default", -1, DefaultActivityThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewActivityDetector(tt.threshold)
			defer a.Close()

			if got := a.Threshold(); got != tt.want {
				t.Errorf("Threshold() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestActivityDetector_StillScene(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	a := NewActivityDetector(1.0)
	defer a.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if active, pct := a.Detect(&frame); active || pct != 0 {
		t.Errorf("first frame: active=%v pct=%f, want false/0", active, pct)
	}
	if active, pct := a.Detect(&frame); active {
		t.Errorf("identical frames reported active, pct=%f", pct)
	}
}

func TestActivityDetector_SceneChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	a := NewActivityDetector(1.0)
	defer a.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	a.Detect(&black)
	active, pct := a.Detect(&white)
	if !active || pct < 50 {
		t.Errorf("black to white: active=%v pct=%f", active, pct)
	}

	a.Reset()
	if active, _ := a.Detect(&black); active {
		t.Error("first frame after Reset should only set the baseline")
	}
}

func TestActivityDetector_NilFrame(t *testing.T) {
	a := NewActivityDetector(1.0)
	defer a.Close()

	if active, pct := a.Detect(nil); active || pct != 0 {
		t.Errorf("nil frame: active=%v pct=%f", active, pct)
	}
}
