package tracking

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultCalibrationFrames is the number of frames sampled when the
// configuration does not say otherwise.
const DefaultCalibrationFrames = 20

// NoseSource yields one raw nose observation per call. Each call pulls a
// frame and runs the landmark extractor on it; ok is false when no face was
// found. A non-nil error means the frame itself could not be read.
type NoseSource interface {
	NextNose() (pos Point, ok bool, err error)
}

// NoseSourceFunc adapts a function to NoseSource.
type NoseSourceFunc func() (Point, bool, error)

// NextNose calls f.
func (f NoseSourceFunc) NextNose() (Point, bool, error) {
	return f()
}

// CalibrationConfig controls a calibration run.
type CalibrationConfig struct {
	// Frames is the number of frames to pull (must be >= 1).
	Frames int
	// Thresholds are copied verbatim into the result.
	Thresholds Thresholds
	// RoundNeutral rounds the neutral point to whole pixels. Disable it
	// when the extractor reports normalized coordinates.
	RoundNeutral bool
}

// DefaultCalibrationConfig returns the pixel-space defaults.
func DefaultCalibrationConfig() CalibrationConfig {
	return CalibrationConfig{
		Frames:       DefaultCalibrationFrames,
		Thresholds:   DefaultThresholds,
		RoundNeutral: true,
	}
}

// Calibrate samples cfg.Frames observations from src and computes the
// neutral position as the mean of the frames in which a face was found.
//
// A read error aborts calibration with ErrCaptureFailure. If no frame
// contained a face, ErrCalibrationFailure is returned instead of an
// undefined neutral point.
func Calibrate(ctx context.Context, src NoseSource, cfg CalibrationConfig) (CalibrationState, error) {
	if cfg.Frames < 1 {
		return CalibrationState{}, fmt.Errorf("%w: got %d", ErrInvalidFrameCount, cfg.Frames)
	}
	if !cfg.Thresholds.Valid() {
		return CalibrationState{}, fmt.Errorf("thresholds must be positive, got (%g, %g)", cfg.Thresholds.X, cfg.Thresholds.Y)
	}

	xs := make([]float64, 0, cfg.Frames)
	ys := make([]float64, 0, cfg.Frames)

	for i := 0; i < cfg.Frames; i++ {
		if err := ctx.Err(); err != nil {
			return CalibrationState{}, err
		}

		pos, ok, err := src.NextNose()
		if err != nil {
			return CalibrationState{}, fmt.Errorf("%w: frame %d of %d: %v", ErrCaptureFailure, i+1, cfg.Frames, err)
		}
		if !ok {
			continue
		}
		xs = append(xs, pos.X)
		ys = append(ys, pos.Y)
	}

	if len(xs) == 0 {
		return CalibrationState{}, fmt.Errorf("%w (%d frames sampled)", ErrCalibrationFailure, cfg.Frames)
	}

	neutral := Point{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}
	if cfg.RoundNeutral {
		neutral = Point{X: math.Round(neutral.X), Y: math.Round(neutral.Y)}
	}

	return CalibrationState{
		Neutral:    neutral,
		Thresholds: cfg.Thresholds,
		Samples:    len(xs),
		Spread:     Point{X: spread(xs), Y: spread(ys)},
	}, nil
}

// spread is the population standard deviation, zero for a single sample.
func spread(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	return stat.PopStdDev(v, nil)
}
