// Package tray provides the system tray menu of headpad.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/headpad/internal/tracking"
)

// Tray is the system tray menu.
type Tray struct {
	onToggle      func(enabled bool)
	onRecalibrate func()
	onRecenter    func()
	onDashboard   func()
	onQuit        func()
	enabled       bool
	mu            sync.RWMutex

	menuToggle      *systray.MenuItem
	menuDirection   *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a Tray with the output enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback run when the output is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRecalibrate sets the callback run when recalibration is requested.
func (t *Tray) OnRecalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecalibrate = fn
}

// OnRecenter sets the callback run when a recenter is requested.
func (t *Tray) OnRecenter(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecenter = fn
}

// OnDashboard sets the callback run when the dashboard item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback run when quit is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("headpad")
	systray.SetTooltip("headpad head tracking joystick")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle joystick output")
	systray.AddSeparator()
	t.menuDirection = systray.AddMenuItem(DirectionTitle(tracking.Flags{}, false), "Current head direction")
	t.menuDirection.Disable()
	t.menuLastGesture = systray.AddMenuItem(GestureTitle(""), "Last recognized head gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuRecalibrate := systray.AddMenuItem("Recalibrate", "Sample a new neutral head position")
	menuRecenter := systray.AddMenuItem("Recenter", "Center the stick now")
	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit headpad")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRecalibrate.ClickedCh:
				t.call(func() func() { return t.onRecalibrate })
			case <-menuRecenter.ClickedCh:
				t.call(func() func() { return t.onRecenter })
			case <-menuDashboard.ClickedCh:
				t.call(func() func() { return t.onDashboard })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// call runs the callback returned by get outside the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	fn := get()
	t.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

// SetEnabled updates the toggle without running the callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetDirection shows the direction of a processed frame.
func (t *Tray) SetDirection(res tracking.FrameResult) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuDirection != nil {
		t.menuDirection.SetTitle(DirectionTitle(res.Flags, res.Signal.PrimaryAction))
	}
}

// SetLastGesture shows the last recognized gesture.
func (t *Tray) SetLastGesture(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(GestureTitle(name))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

// DirectionTitle renders direction flags as a menu title.
func DirectionTitle(f tracking.Flags, primary bool) string {
	var dir string
	switch {
	case f.Up && f.Left:
		dir = "up-left"
	case f.Up && f.Right:
		dir = "up-right"
	case f.Down && f.Left:
		dir = "down-left"
	case f.Down && f.Right:
		dir = "down-right"
	case f.Up:
		dir = "up"
	case f.Down:
		dir = "down"
	case f.Left:
		dir = "left"
	case f.Right:
		dir = "right"
	default:
		dir = "neutral"
	}
	if primary {
		dir += " + click"
	}
	return fmt.Sprintf("Direction: %s", dir)
}

// GestureTitle renders the last gesture as a menu title.
func GestureTitle(name string) string {
	if name == "" {
		return "Last gesture: none"
	}
	return "Last gesture: " + name
}
