package device

import (
	"fmt"
	"sync"

	"github.com/ayusman/headpad/internal/tracking"
)

// Guard serializes all writes to a sink. The frame loop and the key
// listener share one Guard so their reports never interleave.
type Guard struct {
	mu      sync.Mutex
	sink    Sink
	x, y    Axis
	primary Button
}

// NewGuard wraps sink. Head motion drives the given stick and the
// primary action clicks the primary button.
func NewGuard(sink Sink, stick Stick, primary Button) *Guard {
	x, y := stick.Axes()
	return &Guard{sink: sink, x: x, y: y, primary: primary}
}

// Emit writes one frame of output as a single report. A primary action
// becomes a press report followed by a release report.
func (g *Guard) Emit(sig tracking.OutputSignal) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	wrote := false
	if sig.Neutral {
		if err := g.sink.WriteAxis(g.x, 0); err != nil {
			return fmt.Errorf("write %s: %w", g.x, err)
		}
		if err := g.sink.WriteAxis(g.y, 0); err != nil {
			return fmt.Errorf("write %s: %w", g.y, err)
		}
		wrote = true
	} else {
		if sig.WriteY {
			if err := g.sink.WriteAxis(g.y, sig.Y); err != nil {
				return fmt.Errorf("write %s: %w", g.y, err)
			}
			wrote = true
		}
		if sig.WriteX {
			if err := g.sink.WriteAxis(g.x, sig.X); err != nil {
				return fmt.Errorf("write %s: %w", g.x, err)
			}
			wrote = true
		}
	}

	if sig.PrimaryAction {
		if err := g.sink.WriteButton(g.primary, true); err != nil {
			return fmt.Errorf("press %s: %w", g.primary, err)
		}
		if err := g.sink.Sync(); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		if err := g.sink.WriteButton(g.primary, false); err != nil {
			return fmt.Errorf("release %s: %w", g.primary, err)
		}
		wrote = true
	}

	if !wrote {
		return nil
	}
	if err := g.sink.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// Button writes a single button transition and syncs.
func (g *Guard) Button(b Button, pressed bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.sink.WriteButton(b, pressed); err != nil {
		return fmt.Errorf("write %s: %w", b, err)
	}
	if err := g.sink.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// Center writes zero to both stick axes.
func (g *Guard) Center() error {
	return g.Emit(tracking.OutputSignal{WriteX: true, WriteY: true, Neutral: true})
}

// Close closes the underlying sink.
func (g *Guard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sink.Close()
}
