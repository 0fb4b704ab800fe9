package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nose struct {
	p  Point
	ok bool
}

func replay(samples []nose) NoseSource {
	i := 0
	return NoseSourceFunc(func() (Point, bool, error) {
		if i >= len(samples) {
			return Point{}, false, errors.New("end of stream")
		}
		s := samples[i]
		i++
		return s.p, s.ok, nil
	})
}

func cfgFrames(n int) CalibrationConfig {
	cfg := DefaultCalibrationConfig()
	cfg.Frames = n
	return cfg
}

func TestCalibrate_ConstantSamples(t *testing.T) {
	samples := make([]nose, 5)
	for i := range samples {
		samples[i] = nose{Point{100, 100}, true}
	}

	state, err := Calibrate(context.Background(), replay(samples), cfgFrames(5))
	require.NoError(t, err)
	assert.Equal(t, Point{100, 100}, state.Neutral)
	assert.Equal(t, DefaultThresholds, state.Thresholds)
	assert.Equal(t, 5, state.Samples)
	assert.Equal(t, Point{}, state.Spread)
}

func TestCalibrate_SkipsMissedDetections(t *testing.T) {
	samples := []nose{
		{Point{10, 20}, true},
		{Point{}, false},
		{Point{20, 40}, true},
		{Point{999, 999}, false},
	}

	state, err := Calibrate(context.Background(), replay(samples), cfgFrames(4))
	require.NoError(t, err)
	assert.Equal(t, Point{15, 30}, state.Neutral)
	assert.Equal(t, 2, state.Samples)
	assert.InDelta(t, 5, state.Spread.X, 1e-9)
	assert.InDelta(t, 10, state.Spread.Y, 1e-9)
}

func TestCalibrate_Rounding(t *testing.T) {
	samples := []nose{{Point{1, 1}, true}, {Point{2, 2}, true}}

	rounded, err := Calibrate(context.Background(), replay(samples), cfgFrames(2))
	require.NoError(t, err)
	assert.Equal(t, Point{2, 2}, rounded.Neutral)

	cfg := cfgFrames(2)
	cfg.RoundNeutral = false
	exact, err := Calibrate(context.Background(), replay(samples), cfg)
	require.NoError(t, err)
	assert.Equal(t, Point{1.5, 1.5}, exact.Neutral)
}

func TestCalibrate_PermutationInvariant(t *testing.T) {
	a := []nose{
		{Point{101, 99}, true},
		{Point{97, 104}, true},
		{Point{103, 100}, true},
		{Point{}, false},
		{Point{99, 98}, true},
	}
	b := []nose{a[4], a[2], a[3], a[0], a[1]}

	cfg := cfgFrames(len(a))
	cfg.RoundNeutral = false

	sa, err := Calibrate(context.Background(), replay(a), cfg)
	require.NoError(t, err)
	sb, err := Calibrate(context.Background(), replay(b), cfg)
	require.NoError(t, err)

	assert.InDelta(t, sa.Neutral.X, sb.Neutral.X, 1e-9)
	assert.InDelta(t, sa.Neutral.Y, sb.Neutral.Y, 1e-9)
	assert.Equal(t, sa.Samples, sb.Samples)
}

func TestCalibrate_NoDetections(t *testing.T) {
	samples := []nose{{Point{}, false}, {Point{}, false}, {Point{}, false}}

	_, err := Calibrate(context.Background(), replay(samples), cfgFrames(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCalibrationFailure)
}

func TestCalibrate_CaptureFailure(t *testing.T) {
	samples := []nose{{Point{1, 1}, true}}

	_, err := Calibrate(context.Background(), replay(samples), cfgFrames(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCaptureFailure)
	assert.NotErrorIs(t, err, ErrCalibrationFailure)
}

func TestCalibrate_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  CalibrationConfig
	}{
		{"zero frames", CalibrationConfig{Frames: 0, Thresholds: DefaultThresholds}},
		{"negative frames", CalibrationConfig{Frames: -1, Thresholds: DefaultThresholds}},
		{"zero threshold", CalibrationConfig{Frames: 1, Thresholds: Thresholds{X: 0, Y: 20}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calibrate(context.Background(), replay([]nose{{Point{1, 1}, true}}), tt.cfg)
			assert.Error(t, err)
		})
	}

	_, err := Calibrate(context.Background(), replay(nil), CalibrationConfig{Frames: 0, Thresholds: DefaultThresholds})
	assert.ErrorIs(t, err, ErrInvalidFrameCount)
}

func TestCalibrate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Calibrate(ctx, replay([]nose{{Point{1, 1}, true}}), cfgFrames(1))
	assert.ErrorIs(t, err, context.Canceled)
}
