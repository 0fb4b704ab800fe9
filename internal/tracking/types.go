// Package tracking turns a per-frame nose position into a calibrated,
// smoothed and thresholded joystick signal.
//
// A Session is built once per run from a CalibrationState and is stepped
// once per frame. Nothing in this package blocks or touches a device; the
// caller forwards each FrameResult to its sink.
package tracking

import (
	"errors"
	"math"
	"time"
)

// Errors returned by the calibration engine and the session loop.
var (
	// ErrCaptureFailure means the frame source could not supply a frame.
	ErrCaptureFailure = errors.New("frame capture failed")
	// ErrCalibrationFailure means no usable nose sample was collected.
	ErrCalibrationFailure = errors.New("calibration failed: no face detected")
	// ErrInvalidFrameCount is returned for a calibration frame count below 1.
	ErrInvalidFrameCount = errors.New("calibration frame count must be at least 1")
)

// Point is a raw landmark position, in pixels or normalized frame units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q as a displacement.
func (p Point) Sub(q Point) Displacement {
	return Displacement{DX: p.X - q.X, DY: p.Y - q.Y}
}

// Displacement is an offset from the neutral position.
type Displacement struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Magnitude returns the Euclidean length of the displacement.
func (d Displacement) Magnitude() float64 {
	return math.Hypot(d.DX, d.DY)
}

// IsZero reports whether both components are exactly zero.
func (d Displacement) IsZero() bool {
	return d.DX == 0 && d.DY == 0
}

// Thresholds are the per-axis dead zones used by the classifier.
type Thresholds struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Valid reports whether both thresholds are strictly positive.
func (t Thresholds) Valid() bool {
	return t.X > 0 && t.Y > 0
}

// DefaultThresholds are the fixed thresholds used when none are configured.
var DefaultThresholds = Thresholds{X: 20, Y: 20}

// CalibrationState is the immutable result of calibration.
type CalibrationState struct {
	Neutral    Point      `json:"neutral"`
	Thresholds Thresholds `json:"thresholds"`

	// Samples is the number of frames in which a face was detected.
	Samples int `json:"samples"`
	// Spread is the per-axis standard deviation of the samples. It is
	// reported for diagnostics and does not feed the thresholds.
	Spread Point `json:"spread"`
}

// Observation is everything the landmark extractor reported for one frame.
type Observation struct {
	Time      time.Time
	Nose      Point
	NoseOK    bool
	MouthOpen bool
	MouthOK   bool
	// Winking is the left eye closed. It is false when no face was found.
	Winking bool
}

// MovementSample is the persisted view of one frame's smoothed motion.
type MovementSample struct {
	Timestamp time.Time `json:"timestamp"`
	DX        float64   `json:"dx"`
	DY        float64   `json:"dy"`
	Speed     float64   `json:"speed"`
}

// FrameResult is the outcome of one Session.Step.
type FrameResult struct {
	Time     time.Time    `json:"time"`
	Raw      Point        `json:"raw"`
	Detected bool         `json:"detected"`
	Smoothed Displacement `json:"smoothed"`
	// Stale is set when no face was detected this frame and Smoothed
	// repeats the last valid value.
	Stale        bool           `json:"stale"`
	Flags        Flags          `json:"flags"`
	Stability    StabilityState `json:"stability"`
	StableFrames int            `json:"stable_frames"`
	Recentered   bool           `json:"recentered"`
	// Holding is set on still frames after a stability recenter. The
	// stick stays centered and Signal writes no axis.
	Holding bool `json:"holding"`
	Winking bool `json:"winking"`

	Signal OutputSignal `json:"signal"`
}

// Sample derives the movement sample for this frame. ok is false for stale
// frames, which carry no new measurement.
func (r FrameResult) Sample() (MovementSample, bool) {
	if r.Stale || !r.Detected {
		return MovementSample{}, false
	}
	return MovementSample{
		Timestamp: r.Time,
		DX:        r.Smoothed.DX,
		DY:        r.Smoothed.DY,
		Speed:     r.Smoothed.Magnitude(),
	}, true
}
