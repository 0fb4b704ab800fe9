package tracking

import "strings"

// Flags are the direction decisions for one frame. Up/Down and
// Left/Right are mutually exclusive; diagonals are allowed.
type Flags struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Any reports whether any direction is set.
func (f Flags) Any() bool {
	return f.Up || f.Down || f.Left || f.Right
}

// Horizontal reports whether a horizontal direction is set.
func (f Flags) Horizontal() bool { return f.Left || f.Right }

// Vertical reports whether a vertical direction is set.
func (f Flags) Vertical() bool { return f.Up || f.Down }

// String renders the set directions, e.g. "up-left", or "center".
func (f Flags) String() string {
	var parts []string
	if f.Up {
		parts = append(parts, "up")
	}
	if f.Down {
		parts = append(parts, "down")
	}
	if f.Left {
		parts = append(parts, "left")
	}
	if f.Right {
		parts = append(parts, "right")
	}
	if len(parts) == 0 {
		return "center"
	}
	return strings.Join(parts, "-")
}

// Classify compares a smoothed displacement against the thresholds.
// A component exactly equal to its threshold does not count as moved.
// Screen Y grows downwards, so negative DY is up.
func Classify(d Displacement, t Thresholds) Flags {
	return Flags{
		Up:    d.DY < -t.Y,
		Down:  d.DY > t.Y,
		Left:  d.DX < -t.X,
		Right: d.DX > t.X,
	}
}
