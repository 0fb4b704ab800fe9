package device

import "sort"

// State accumulates the gamepad state between reports. It backs the
// sinks that send whole snapshots rather than individual events.
type State struct {
	Axes    map[Axis]int32  `json:"axes"`
	Buttons map[Button]bool `json:"-"`
}

// SetAxis records an axis value.
func (s *State) SetAxis(a Axis, v int32) {
	if s.Axes == nil {
		s.Axes = make(map[Axis]int32)
	}
	s.Axes[a] = v
}

// SetButton records a button state.
func (s *State) SetButton(b Button, pressed bool) {
	if s.Buttons == nil {
		s.Buttons = make(map[Button]bool)
	}
	s.Buttons[b] = pressed
}

// Axis returns the last value written to a.
func (s *State) Axis(a Axis) int32 { return s.Axes[a] }

// Pressed returns the held buttons in code order.
func (s *State) Pressed() []Button {
	var out []Button
	for b, down := range s.Buttons {
		if down {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
