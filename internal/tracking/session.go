package tracking

import (
	"fmt"
	"sync"
	"time"
)

// Config holds the per-session tunables.
type Config struct {
	Filter FilterConfig
	// MovementEpsilon is the per-axis frame-to-frame motion at or below
	// which a frame counts as still.
	MovementEpsilon float64
	// StabilityFrames is the still-frame count that triggers a recenter.
	StabilityFrames int
	Mapper          MapperConfig
}

// DefaultConfig returns the defaults used by the gamepad pipeline.
func DefaultConfig() Config {
	return Config{
		Filter: FilterConfig{
			Strategy:        StrategyMovingAverage,
			WindowSize:      DefaultWindowSize,
			SmoothingFactor: DefaultSmoothingFactor,
		},
		MovementEpsilon: DefaultMovementEpsilon,
		StabilityFrames: DefaultStabilityFrames,
		Mapper:          DefaultMapperConfig(),
	}
}

// Snapshot is a read-only view of a session for status reporting.
type Snapshot struct {
	Calibration  CalibrationState `json:"calibration"`
	Frames       int              `json:"frames"`
	Detections   int              `json:"detections"`
	Recenters    int              `json:"recenters"`
	Smoothed     Displacement     `json:"smoothed"`
	Flags        Flags            `json:"flags"`
	Stability    StabilityState   `json:"stability"`
	StableFrames int              `json:"stable_frames"`
}

// Session is one calibrated tracking run. It owns the filter, the
// recenter machine, the mapper and the mouth edge detector. Methods are
// safe for concurrent use, but Step is meant to be driven by a single
// frame loop.
type Session struct {
	mu sync.Mutex

	calib     CalibrationState
	filter    Filter
	stability *Stability
	mapper    *Mapper
	mouth     EdgeDetector

	prevRaw  Point
	hasPrev  bool
	flags    Flags
	pending  bool
	frames   int
	detected int
	recenter int
}

// NewSession builds a session around an existing calibration.
func NewSession(state CalibrationState, cfg Config) (*Session, error) {
	if !state.Thresholds.Valid() {
		return nil, fmt.Errorf("calibration thresholds must be positive, got (%g, %g)",
			state.Thresholds.X, state.Thresholds.Y)
	}
	filter, err := NewFilter(cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	mapper, err := NewMapper(cfg.Mapper)
	if err != nil {
		return nil, fmt.Errorf("mapper: %w", err)
	}
	return &Session{
		calib:     state,
		filter:    filter,
		stability: NewStability(cfg.MovementEpsilon, cfg.StabilityFrames),
		mapper:    mapper,
	}, nil
}

// Calibration returns the calibration the session was built with.
func (s *Session) Calibration() CalibrationState {
	return s.calib
}

// Recenter forces a neutral output on the next detected frame. The
// neutral reference point is not moved. The request waits through stale
// frames and is dropped with the session, so a recalibration never
// inherits it.
func (s *Session) Recenter() {
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
}

// Step advances the session by one frame.
//
// A frame without a nose detection is stale: the previous smoothed value
// is reported, the filter and the stability counter are left alone and
// no axis is written. The mouth edge is evaluated on every frame.
func (s *Session) Step(obs Observation) FrameResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obs.Time.IsZero() {
		obs.Time = time.Now()
	}
	s.frames++

	res := FrameResult{
		Time:     obs.Time,
		Raw:      obs.Nose,
		Detected: obs.NoseOK,
		Winking:  obs.Winking,
	}
	primary := s.mouth.Update(obs.MouthOpen, obs.MouthOK)

	if !obs.NoseOK {
		res.Stale = true
		res.Smoothed = s.filter.Current()
		res.Flags = s.flags
		res.Stability = s.stability.State()
		res.StableFrames = s.stability.Count()
		res.Signal = OutputSignal{PrimaryAction: primary}
		return res
	}
	s.detected++

	res.Smoothed = s.filter.Push(obs.Nose.Sub(s.calib.Neutral))
	res.Flags = Classify(res.Smoothed, s.calib.Thresholds)
	s.flags = res.Flags

	if s.hasPrev {
		res.Recentered = s.stability.Observe(obs.Nose.Sub(s.prevRaw))
	}
	s.prevRaw = obs.Nose
	s.hasPrev = true

	if s.pending {
		res.Recentered = true
		s.pending = false
	}
	res.Stability = s.stability.State()
	res.StableFrames = s.stability.Count()

	switch {
	case res.Recentered:
		s.recenter++
		res.Signal = s.mapper.Neutral()
	case s.stability.Held():
		// Centered on the recenter frame; nothing to write until the
		// head moves again.
		res.Holding = true
	default:
		res.Signal = s.mapper.Map(res.Smoothed, res.Flags)
	}
	res.Signal.PrimaryAction = primary
	return res
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Calibration:  s.calib,
		Frames:       s.frames,
		Detections:   s.detected,
		Recenters:    s.recenter,
		Smoothed:     s.filter.Current(),
		Flags:        s.flags,
		Stability:    s.stability.State(),
		StableFrames: s.stability.Count(),
	}
}
