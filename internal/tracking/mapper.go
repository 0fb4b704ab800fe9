package tracking

import (
	"fmt"
	"math"
)

// Mapper defaults.
const (
	DefaultMultiplier  = 50.2
	DefaultSensitivity = 0.45
)

// AxisRange is the inclusive value range of a device axis.
type AxisRange struct {
	Min int32 `json:"min"`
	Max int32 `json:"max"`
}

// DefaultAxisRange is the signed 16-bit range of a gamepad stick.
var DefaultAxisRange = AxisRange{Min: math.MinInt16, Max: math.MaxInt16}

// Clip clamps v into the range and truncates it toward zero.
func (r AxisRange) Clip(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v <= float64(r.Min):
		return r.Min
	case v >= float64(r.Max):
		return r.Max
	default:
		return int32(v)
	}
}

// OutputSignal is what one frame asks the device sink to do. It is
// rebuilt every frame and never persisted.
type OutputSignal struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	// WriteX and WriteY gate the axis writes on the direction flags.
	WriteX bool `json:"write_x"`
	WriteY bool `json:"write_y"`
	// Neutral asks for an explicit zero on both axes.
	Neutral bool `json:"neutral"`
	// PrimaryAction asks for one press and release of the primary button.
	PrimaryAction bool `json:"primary_action"`
}

// MapperConfig parameterizes a Mapper.
type MapperConfig struct {
	Multiplier  float64
	Sensitivity float64
	Range       AxisRange
	// InvertX negates the horizontal axis, matching a mirrored camera.
	InvertX bool
	InvertY bool
}

// DefaultMapperConfig returns the gamepad defaults.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		Multiplier:  DefaultMultiplier,
		Sensitivity: DefaultSensitivity,
		Range:       DefaultAxisRange,
		InvertX:     true,
	}
}

// Mapper scales smoothed displacements into device axis values.
type Mapper struct {
	cfg MapperConfig
}

// NewMapper validates cfg and returns a Mapper.
func NewMapper(cfg MapperConfig) (*Mapper, error) {
	if cfg.Range.Min >= cfg.Range.Max {
		return nil, fmt.Errorf("invalid axis range [%d, %d]", cfg.Range.Min, cfg.Range.Max)
	}
	if cfg.Multiplier <= 0 {
		return nil, fmt.Errorf("multiplier must be positive, got %g", cfg.Multiplier)
	}
	if cfg.Sensitivity <= 0 {
		return nil, fmt.Errorf("sensitivity must be positive, got %g", cfg.Sensitivity)
	}
	return &Mapper{cfg: cfg}, nil
}

// Config returns the mapper configuration.
func (m *Mapper) Config() MapperConfig { return m.cfg }

// Scale converts one displacement component into a clipped axis value.
func (m *Mapper) Scale(v float64) int32 {
	return m.cfg.Range.Clip(v * m.cfg.Multiplier * m.cfg.Sensitivity)
}

// Map builds the output for a smoothed displacement. An axis is written
// only when the classifier flagged movement on it. When both scaled
// values are zero the output is an explicit neutral on both axes.
func (m *Mapper) Map(d Displacement, flags Flags) OutputSignal {
	dx, dy := d.DX, d.DY
	if m.cfg.InvertX {
		dx = -dx
	}
	if m.cfg.InvertY {
		dy = -dy
	}

	x, y := m.Scale(dx), m.Scale(dy)
	if x == 0 && y == 0 {
		return m.Neutral()
	}
	return OutputSignal{
		X:      x,
		Y:      y,
		WriteX: flags.Horizontal(),
		WriteY: flags.Vertical(),
	}
}

// Neutral returns the explicit centered output.
func (m *Mapper) Neutral() OutputSignal {
	return OutputSignal{WriteX: true, WriteY: true, Neutral: true}
}
