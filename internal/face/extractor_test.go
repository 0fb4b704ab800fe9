package face

import (
	"context"
	"errors"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/headpad/internal/tracking"
)

func TestExtractor_FromLandmarks(t *testing.T) {
	e := NewExtractor(NewMockDetector())
	at := time.Unix(100, 0)

	t.Run("no face", func(t *testing.T) {
		obs := e.FromLandmarks(nil, 640, 480, at)
		if obs.NoseOK || obs.MouthOK {
			t.Errorf("expected nothing detected, got %+v", obs)
		}
		if !obs.Time.Equal(at) {
			t.Errorf("Time = %v, want %v", obs.Time, at)
		}
	})

	t.Run("neutral face", func(t *testing.T) {
		obs := e.FromLandmarks(NeutralFace(), 640, 480, at)
		want := tracking.Point{X: 320, Y: 240}
		if !obs.NoseOK || obs.Nose != want {
			t.Errorf("Nose = %+v (ok=%v), want %+v", obs.Nose, obs.NoseOK, want)
		}
		if !obs.MouthOK || obs.MouthOpen {
			t.Errorf("expected closed mouth, got open=%v ok=%v", obs.MouthOpen, obs.MouthOK)
		}
	})

	t.Run("open mouth", func(t *testing.T) {
		obs := e.FromLandmarks(MouthOpenFace(), 640, 480, at)
		if !obs.MouthOpen {
			t.Error("expected open mouth")
		}
	})

	t.Run("wink", func(t *testing.T) {
		if e.FromLandmarks(NeutralFace(), 640, 480, at).Winking {
			t.Error("open eye should not count as a wink")
		}
		if !e.FromLandmarks(WinkingFace(), 640, 480, at).Winking {
			t.Error("closed eye should count as a wink")
		}
		if e.FromLandmarks(nil, 640, 480, at).Winking {
			t.Error("no face should not count as a wink")
		}

		loose := NewExtractor(NewMockDetector())
		loose.WinkThreshold = 7
		if !loose.FromLandmarks(NeutralFace(), 640, 480, at).Winking {
			t.Error("opening equal to WinkThreshold should count as a wink")
		}
	})

	t.Run("gap equal to threshold is closed", func(t *testing.T) {
		strict := NewExtractor(NewMockDetector())
		strict.MouthThreshold = 30
		if strict.FromLandmarks(MouthOpenFace(), 640, 480, at).MouthOpen {
			t.Error("gap equal to threshold should not count as open")
		}
	})
}

func TestExtractor_Frame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	mock := NewMockDetector()
	e := NewExtractor(mock)

	mock.SetFace(NeutralFace())
	pos, ok, err := e.NosePosition(&frame)
	if err != nil || !ok {
		t.Fatalf("NosePosition() ok=%v err=%v", ok, err)
	}
	if pos != (tracking.Point{X: 320, Y: 240}) {
		t.Errorf("NosePosition() = %+v", pos)
	}

	mock.SetFace(WinkingFace())
	winking, err := e.LeftEyeWinking(&frame, DefaultWinkThreshold)
	if err != nil || !winking {
		t.Errorf("LeftEyeWinking() = %v, %v; want true", winking, err)
	}

	mock.SetFace(nil)
	if _, ok, _ := e.MouthOpen(&frame); ok {
		t.Error("MouthOpen() ok with no face")
	}
	if winking, _ := e.LeftEyeWinking(&frame, DefaultWinkThreshold); winking {
		t.Error("no face should not count as winking")
	}

	mock.SetError(errors.New("boom"))
	if _, err := e.Observe(&frame); err == nil {
		t.Error("expected detector error")
	}
}

func TestExtractor_NoseSource(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mock := NewMockDetector()
	mock.Queue(NeutralFace(), nil)
	e := NewExtractor(mock)

	read := func() (*gocv.Mat, error) {
		m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		return &m, nil
	}
	src := e.NoseSource(read)

	if _, ok, err := src.NextNose(); err != nil || !ok {
		t.Fatalf("first NextNose ok=%v err=%v", ok, err)
	}
	if _, ok, err := src.NextNose(); err != nil || ok {
		t.Fatalf("second NextNose ok=%v err=%v, want no face", ok, err)
	}

	failing := e.NoseSource(func() (*gocv.Mat, error) { return nil, errors.New("camera gone") })
	if _, _, err := failing.NextNose(); err == nil {
		t.Error("expected read error")
	}
}

func TestExtractor_NoseSourceDetectorError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mock := NewMockDetector()
	mock.SetError(errors.New("facemesh service error"))
	e := NewExtractor(mock)

	src := e.NoseSource(func() (*gocv.Mat, error) {
		m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		return &m, nil
	})

	if _, ok, err := src.NextNose(); err != nil || ok {
		t.Fatalf("NextNose() ok=%v err=%v, want no face and no error", ok, err)
	}

	cfg := tracking.DefaultCalibrationConfig()
	cfg.Frames = 3
	_, err := tracking.Calibrate(context.Background(), src, cfg)
	if errors.Is(err, tracking.ErrCaptureFailure) {
		t.Fatalf("Calibrate() error = %v, detector errors are not capture failures", err)
	}
	if !errors.Is(err, tracking.ErrCalibrationFailure) {
		t.Errorf("Calibrate() error = %v, want ErrCalibrationFailure", err)
	}
}

func TestParseMeshResponse(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantFace bool
		wantErr  bool
	}{
		{"no faces", `{"faces":[]}` + "\n", false, false},
		{"one face", `{"faces":[{"nose":{"x":0.5,"y":0.5,"z":0},"score":0.9}]}`, true, false},
		{"service error", `{"faces":[],"error":"decode failed"}`, false, true},
		{"garbage", `not json`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lm, err := parseMeshResponse([]byte(tt.line))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if (lm != nil) != tt.wantFace {
				t.Errorf("face = %+v, wantFace %v", lm, tt.wantFace)
			}
		})
	}
}

func TestMockDetector_Queue(t *testing.T) {
	mock := NewMockDetector()
	mock.SetFace(NeutralFace())
	mock.Queue(nil)

	if lm, _ := mock.Detect(nil); lm != nil {
		t.Error("expected queued nil face first")
	}
	if lm, _ := mock.Detect(nil); lm == nil {
		t.Error("expected preset face after queue drained")
	}
	if mock.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", mock.Calls())
	}
}
