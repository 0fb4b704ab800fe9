package tracking

import "fmt"

// Filter smooths the stream of raw displacements. Frames without a
// detection are never pushed.
type Filter interface {
	// Push folds one raw displacement in and returns the smoothed estimate.
	Push(d Displacement) Displacement
	// Current returns the last smoothed estimate without changing state.
	Current() Displacement
	// Reset drops all history.
	Reset()
}

// Strategy names a smoothing strategy.
type Strategy string

const (
	// StrategyMovingAverage is the bounded moving average.
	StrategyMovingAverage Strategy = "moving-average"
	// StrategyExponential is the exponential blend.
	StrategyExponential Strategy = "exponential"
)

// Filter defaults.
const (
	DefaultWindowSize      = 3
	DefaultSmoothingFactor = 0.65
)

// FilterConfig selects and parameterizes a Filter.
type FilterConfig struct {
	Strategy Strategy
	// WindowSize is the moving-average capacity K.
	WindowSize int
	// SmoothingFactor is the weight alpha given to the previous value by
	// the exponential blend, in [0, 1).
	SmoothingFactor float64
}

// NewFilter builds the filter described by cfg.
func NewFilter(cfg FilterConfig) (Filter, error) {
	switch cfg.Strategy {
	case StrategyMovingAverage, "":
		size := cfg.WindowSize
		if size == 0 {
			size = DefaultWindowSize
		}
		if size < 1 {
			return nil, fmt.Errorf("window size must be at least 1, got %d", size)
		}
		return NewMovingAverage(size), nil
	case StrategyExponential:
		if cfg.SmoothingFactor < 0 || cfg.SmoothingFactor >= 1 {
			return nil, fmt.Errorf("smoothing factor must be in [0, 1), got %g", cfg.SmoothingFactor)
		}
		return NewExponentialBlend(cfg.SmoothingFactor), nil
	default:
		return nil, fmt.Errorf("unknown filter strategy %q", cfg.Strategy)
	}
}

// Window is a bounded FIFO of displacements. Pushing beyond capacity
// evicts the oldest entry.
type Window struct {
	buf   []Displacement
	start int
	n     int
}

// NewWindow creates a window holding at most capacity entries.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]Displacement, capacity)}
}

// Push appends d, evicting the oldest entry when full.
func (w *Window) Push(d Displacement) {
	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = d
		w.n++
		return
	}
	w.buf[w.start] = d
	w.start = (w.start + 1) % len(w.buf)
}

// Len returns the number of entries held.
func (w *Window) Len() int { return w.n }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Items returns the entries oldest first.
func (w *Window) Items() []Displacement {
	out := make([]Displacement, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Mean returns the arithmetic mean of the entries actually pushed. An
// empty window has a zero mean.
func (w *Window) Mean() Displacement {
	if w.n == 0 {
		return Displacement{}
	}
	var sx, sy float64
	for i := 0; i < w.n; i++ {
		d := w.buf[(w.start+i)%len(w.buf)]
		sx += d.DX
		sy += d.DY
	}
	n := float64(w.n)
	return Displacement{DX: sx / n, DY: sy / n}
}

// Reset empties the window.
func (w *Window) Reset() {
	w.start = 0
	w.n = 0
}

// MovingAverage smooths by averaging the last K displacements.
type MovingAverage struct {
	window  *Window
	current Displacement
}

// NewMovingAverage creates a moving average over the last size pushes.
func NewMovingAverage(size int) *MovingAverage {
	return &MovingAverage{window: NewWindow(size)}
}

// Push implements Filter.
func (m *MovingAverage) Push(d Displacement) Displacement {
	m.window.Push(d)
	m.current = m.window.Mean()
	return m.current
}

// Current implements Filter.
func (m *MovingAverage) Current() Displacement { return m.current }

// Reset implements Filter.
func (m *MovingAverage) Reset() {
	m.window.Reset()
	m.current = Displacement{}
}

// Window exposes the underlying window.
func (m *MovingAverage) Window() *Window { return m.window }

// ExponentialBlend computes out = previous*alpha + candidate*(1-alpha).
// The first push is passed through unchanged.
type ExponentialBlend struct {
	alpha       float64
	previous    Displacement
	initialized bool
}

// NewExponentialBlend creates an exponential blend with weight alpha on
// the previous value.
func NewExponentialBlend(alpha float64) *ExponentialBlend {
	return &ExponentialBlend{alpha: alpha}
}

// Push implements Filter.
func (e *ExponentialBlend) Push(d Displacement) Displacement {
	if !e.initialized {
		e.previous = d
		e.initialized = true
		return d
	}
	e.previous = Displacement{
		DX: e.previous.DX*e.alpha + d.DX*(1-e.alpha),
		DY: e.previous.DY*e.alpha + d.DY*(1-e.alpha),
	}
	return e.previous
}

// Current implements Filter.
func (e *ExponentialBlend) Current() Displacement { return e.previous }

// Reset implements Filter.
func (e *ExponentialBlend) Reset() {
	e.previous = Displacement{}
	e.initialized = false
}

// Alpha returns the smoothing factor.
func (e *ExponentialBlend) Alpha() float64 { return e.alpha }
