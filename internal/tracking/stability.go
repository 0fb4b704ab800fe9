package tracking

import (
	"fmt"
	"math"
)

// Stability defaults.
const (
	// DefaultStabilityFrames is the number of consecutive still frames
	// after which the output is recentered.
	DefaultStabilityFrames = 100
	// DefaultMovementEpsilon is the largest per-axis frame-to-frame nose
	// motion, in pixels, that still counts as holding the head still.
	DefaultMovementEpsilon = 1.0
)

// StabilityState is the state of the recenter machine.
type StabilityState int

const (
	// Tracking means the head moved on the last detected frame.
	Tracking StabilityState = iota
	// Stable means the head is being held still. The still-frame count
	// accumulates toward the recenter threshold.
	Stable
)

// String returns the state name.
func (s StabilityState) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case Stable:
		return "stable"
	default:
		return fmt.Sprintf("StabilityState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s StabilityState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *StabilityState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "tracking":
		*s = Tracking
	case "stable":
		*s = Stable
	default:
		return fmt.Errorf("unknown stability state %q", b)
	}
	return nil
}

// Stability counts consecutive still frames and fires a one-shot
// recenter once the count reaches the threshold. The first still frame
// moves it to Stable. Any motion above epsilon on either axis resets the
// count, returns it to Tracking and re-arms the latch.
type Stability struct {
	epsilon   float64
	threshold int

	count int
	fired bool
	state StabilityState
}

// NewStability creates a recenter machine. Non-positive arguments fall
// back to the defaults.
func NewStability(epsilon float64, threshold int) *Stability {
	if epsilon <= 0 {
		epsilon = DefaultMovementEpsilon
	}
	if threshold <= 0 {
		threshold = DefaultStabilityFrames
	}
	return &Stability{epsilon: epsilon, threshold: threshold}
}

// Observe feeds the frame-to-frame motion of one frame and reports
// whether the recenter action fires on this frame.
func (s *Stability) Observe(motion Displacement) bool {
	if math.Abs(motion.DX) > s.epsilon || math.Abs(motion.DY) > s.epsilon {
		s.count = 0
		s.fired = false
		s.state = Tracking
		return false
	}

	s.count++
	s.state = Stable
	if s.count < s.threshold || s.fired {
		return false
	}
	s.fired = true
	return true
}

// Held reports whether the recenter has fired and no motion has been
// seen since. The output stays centered while it holds.
func (s *Stability) Held() bool { return s.fired }

// State returns the current state.
func (s *Stability) State() StabilityState { return s.state }

// Count returns the number of consecutive still frames.
func (s *Stability) Count() int { return s.count }

// Threshold returns the number of still frames needed to recenter.
func (s *Stability) Threshold() int { return s.threshold }

// Reset clears the count and re-arms the latch.
func (s *Stability) Reset() {
	s.count = 0
	s.fired = false
	s.state = Tracking
}

// EdgeDetector reports false-to-true transitions of a boolean signal.
// Frames where the signal is unavailable count as false.
type EdgeDetector struct {
	prev bool
}

// Update feeds one frame and reports whether it is a rising edge.
func (e *EdgeDetector) Update(value, ok bool) bool {
	cur := ok && value
	rising := cur && !e.prev
	e.prev = cur
	return rising
}

// Reset forgets the previous value.
func (e *EdgeDetector) Reset() { e.prev = false }
