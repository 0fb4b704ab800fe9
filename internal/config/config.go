// Package config loads and validates the headpad settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/headpad/internal/capture"
	"github.com/ayusman/headpad/internal/device"
	"github.com/ayusman/headpad/internal/face"
	"github.com/ayusman/headpad/internal/gesture"
	"github.com/ayusman/headpad/internal/movementlog"
	"github.com/ayusman/headpad/internal/tracking"
)

// maxFileSize bounds the settings file.
const maxFileSize = 1 << 20

// CameraConfig selects and paces the camera.
type CameraConfig struct {
	DeviceID int  `json:"device_id"`
	Width    int  `json:"width"`
	Height   int  `json:"height"`
	Mirror   bool `json:"mirror"`
	// ActiveFPS is used while the scene or the head moves, IdleFPS after
	// IdleTimeout without activity.
	ActiveFPS         int     `json:"active_fps"`
	IdleFPS           int     `json:"idle_fps"`
	IdleTimeout       string  `json:"idle_timeout"`
	ActivityThreshold float64 `json:"activity_threshold"`
}

// CalibrationConfig controls the calibration run.
type CalibrationConfig struct {
	Frames       int     `json:"frames"`
	ThresholdX   float64 `json:"threshold_x"`
	ThresholdY   float64 `json:"threshold_y"`
	RoundNeutral bool    `json:"round_neutral"`
}

// FilterConfig selects the smoothing strategy.
type FilterConfig struct {
	Strategy        string  `json:"strategy"`
	WindowSize      int     `json:"window_size"`
	SmoothingFactor float64 `json:"smoothing_factor"`
}

// StabilityConfig controls automatic recentering.
type StabilityConfig struct {
	MovementEpsilon float64 `json:"movement_epsilon"`
	Frames          int     `json:"frames"`
}

// MapperConfig controls the axis output.
type MapperConfig struct {
	Multiplier  float64 `json:"multiplier"`
	Sensitivity float64 `json:"sensitivity"`
	AxisMin     int32   `json:"axis_min"`
	AxisMax     int32   `json:"axis_max"`
	Stick       string  `json:"stick"`
	InvertX     bool    `json:"invert_x"`
	InvertY     bool    `json:"invert_y"`
	// PrimaryButton is fired on each mouth-open edge.
	PrimaryButton string `json:"primary_button"`
}

// FaceConfig configures landmark extraction.
type FaceConfig struct {
	MouthThreshold int     `json:"mouth_threshold"`
	WinkThreshold  int     `json:"wink_threshold"`
	MinConfidence  float64 `json:"min_confidence"`
	Python         string  `json:"python,omitempty"`
	Script         string  `json:"script,omitempty"`
}

// SamplesConfig controls movement sample logging.
type SamplesConfig struct {
	MinMovement float64 `json:"min_movement"`
	BatchSize   int     `json:"batch_size"`
	// CSVPath enables the CSV log when set.
	CSVPath string `json:"csv_path,omitempty"`
	// Store also writes samples to the database.
	Store bool `json:"store"`
}

// GestureConfig controls head gesture recognition.
type GestureConfig struct {
	Enabled       bool   `json:"enabled"`
	BufferSize    int    `json:"buffer_size"`
	MinPoints     int    `json:"min_points"`
	Cooldown      int    `json:"cooldown"`
	PluginTimeout string `json:"plugin_timeout"`
}

// Config is the whole settings file.
type Config struct {
	Camera      CameraConfig      `json:"camera"`
	Calibration CalibrationConfig `json:"calibration"`
	Filter      FilterConfig      `json:"filter"`
	Stability   StabilityConfig   `json:"stability"`
	Mapper      MapperConfig      `json:"mapper"`
	Face        FaceConfig        `json:"face"`
	Samples     SamplesConfig     `json:"samples"`
	Gestures    GestureConfig     `json:"gestures"`
	Keys        map[string]string `json:"keys"`
	Device      device.Config     `json:"device"`
	Addr        string            `json:"addr"`
	PluginDir   string            `json:"plugin_dir"`
	DBPath      string            `json:"db_path"`
	LogLevel    string            `json:"log_level"`
}

// Dir returns ~/.headpad, falling back to the working directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".headpad"
	}
	return filepath.Join(home, ".headpad")
}

// DefaultPath returns the default settings file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.json")
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	dir := Dir()
	return &Config{
		Camera: CameraConfig{
			Width:             capture.DefaultWidth,
			Height:            capture.DefaultHeight,
			Mirror:            true,
			ActiveFPS:         capture.DefaultFPS,
			IdleFPS:           5,
			IdleTimeout:       "2s",
			ActivityThreshold: capture.DefaultActivityThreshold,
		},
		Calibration: CalibrationConfig{
			Frames:       tracking.DefaultCalibrationFrames,
			ThresholdX:   tracking.DefaultThresholds.X,
			ThresholdY:   tracking.DefaultThresholds.Y,
			RoundNeutral: true,
		},
		Filter: FilterConfig{
			Strategy:        string(tracking.StrategyMovingAverage),
			WindowSize:      tracking.DefaultWindowSize,
			SmoothingFactor: tracking.DefaultSmoothingFactor,
		},
		Stability: StabilityConfig{
			MovementEpsilon: tracking.DefaultMovementEpsilon,
			Frames:          tracking.DefaultStabilityFrames,
		},
		Mapper: MapperConfig{
			Multiplier:    tracking.DefaultMultiplier,
			Sensitivity:   tracking.DefaultSensitivity,
			AxisMin:       tracking.DefaultAxisRange.Min,
			AxisMax:       tracking.DefaultAxisRange.Max,
			Stick:         string(device.StickRight),
			InvertX:       true,
			PrimaryButton: device.BtnLeft.String(),
		},
		Face: FaceConfig{
			MouthThreshold: face.DefaultMouthThreshold,
			WinkThreshold:  face.DefaultWinkThreshold,
			MinConfidence:  face.DefaultConfig().MinConfidence,
		},
		Samples: SamplesConfig{
			MinMovement: movementlog.DefaultMinMovement,
			BatchSize:   movementlog.DefaultBatchSize,
			Store:       true,
		},
		Gestures: GestureConfig{
			Enabled:       true,
			BufferSize:    45,
			MinPoints:     10,
			Cooldown:      15,
			PluginTimeout: "5s",
		},
		Keys:      map[string]string{},
		Device:    device.DefaultConfig(),
		Addr:      "127.0.0.1:8080",
		PluginDir: filepath.Join(dir, "plugins"),
		DBPath:    filepath.Join(dir, "headpad.db"),
		LogLevel:  "info",
	}
}

// Load reads the settings file at path on top of the defaults. A missing
// file yields the defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(clean)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the settings file, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Validate clamps numeric settings into working ranges and rejects
// unknown names.
func (c *Config) Validate() error {
	switch tracking.Strategy(c.Filter.Strategy) {
	case tracking.StrategyMovingAverage, tracking.StrategyExponential:
	default:
		return fmt.Errorf("unknown filter strategy %q", c.Filter.Strategy)
	}
	if !device.Stick(c.Mapper.Stick).Valid() {
		return fmt.Errorf("unknown stick %q", c.Mapper.Stick)
	}
	if _, ok := device.ParseButton(c.Mapper.PrimaryButton); !ok {
		return fmt.Errorf("unknown primary button %q", c.Mapper.PrimaryButton)
	}
	for _, kind := range c.Device.Kinds {
		switch kind {
		case device.KindLog, device.KindUinput, device.KindMQTT, device.KindSerial:
		default:
			return fmt.Errorf("unknown sink %q", kind)
		}
	}
	if c.Mapper.AxisMin >= c.Mapper.AxisMax {
		return fmt.Errorf("axis_min %d must be below axis_max %d", c.Mapper.AxisMin, c.Mapper.AxisMax)
	}
	if _, err := time.ParseDuration(c.Camera.IdleTimeout); err != nil {
		return fmt.Errorf("invalid idle_timeout %q: %w", c.Camera.IdleTimeout, err)
	}
	if _, err := time.ParseDuration(c.Gestures.PluginTimeout); err != nil {
		return fmt.Errorf("invalid plugin_timeout %q: %w", c.Gestures.PluginTimeout, err)
	}

	c.Camera.ActiveFPS = clampInt(c.Camera.ActiveFPS, 1, 60)
	c.Camera.IdleFPS = clampInt(c.Camera.IdleFPS, 1, c.Camera.ActiveFPS)
	c.Calibration.Frames = clampInt(c.Calibration.Frames, 1, 1000)
	c.Calibration.ThresholdX = clampFloat(c.Calibration.ThresholdX, 0.001, 1000)
	c.Calibration.ThresholdY = clampFloat(c.Calibration.ThresholdY, 0.001, 1000)
	c.Filter.WindowSize = clampInt(c.Filter.WindowSize, 1, 30)
	c.Filter.SmoothingFactor = clampFloat(c.Filter.SmoothingFactor, 0, 0.99)
	c.Stability.MovementEpsilon = clampFloat(c.Stability.MovementEpsilon, 0.01, 100)
	c.Stability.Frames = clampInt(c.Stability.Frames, 1, 10000)
	c.Mapper.Multiplier = clampFloat(c.Mapper.Multiplier, 0.01, 10000)
	c.Mapper.Sensitivity = clampFloat(c.Mapper.Sensitivity, 0.01, 10)
	c.Face.MouthThreshold = clampInt(c.Face.MouthThreshold, 1, 200)
	c.Face.WinkThreshold = clampInt(c.Face.WinkThreshold, 0, 50)
	c.Samples.MinMovement = clampFloat(c.Samples.MinMovement, 0, 1000)
	c.Samples.BatchSize = clampInt(c.Samples.BatchSize, 1, 1000)
	c.Gestures.BufferSize = clampInt(c.Gestures.BufferSize, 2, 600)
	c.Gestures.MinPoints = clampInt(c.Gestures.MinPoints, 2, c.Gestures.BufferSize)
	c.Gestures.Cooldown = clampInt(c.Gestures.Cooldown, 0, 600)
	return nil
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func clampFloat(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

// CaptureConfig returns the camera settings.
func (c *Config) CaptureConfig() capture.Config {
	return capture.Config{
		DeviceID: c.Camera.DeviceID,
		Width:    c.Camera.Width,
		Height:   c.Camera.Height,
		FPS:      c.Camera.ActiveFPS,
		Mirror:   c.Camera.Mirror,
	}
}

// IdleTimeout returns the parsed idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Camera.IdleTimeout)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// PluginTimeout returns the parsed plugin timeout.
func (c *Config) PluginTimeout() time.Duration {
	d, err := time.ParseDuration(c.Gestures.PluginTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// CalibrationConfig returns the calibration engine settings.
func (c *Config) CalibrationConfig() tracking.CalibrationConfig {
	return tracking.CalibrationConfig{
		Frames:       c.Calibration.Frames,
		Thresholds:   tracking.Thresholds{X: c.Calibration.ThresholdX, Y: c.Calibration.ThresholdY},
		RoundNeutral: c.Calibration.RoundNeutral,
	}
}

// TrackingConfig returns the per-session settings.
func (c *Config) TrackingConfig() tracking.Config {
	return tracking.Config{
		Filter: tracking.FilterConfig{
			Strategy:        tracking.Strategy(c.Filter.Strategy),
			WindowSize:      c.Filter.WindowSize,
			SmoothingFactor: c.Filter.SmoothingFactor,
		},
		MovementEpsilon: c.Stability.MovementEpsilon,
		StabilityFrames: c.Stability.Frames,
		Mapper: tracking.MapperConfig{
			Multiplier:  c.Mapper.Multiplier,
			Sensitivity: c.Mapper.Sensitivity,
			Range:       tracking.AxisRange{Min: c.Mapper.AxisMin, Max: c.Mapper.AxisMax},
			InvertX:     c.Mapper.InvertX,
			InvertY:     c.Mapper.InvertY,
		},
	}
}

// PrimaryButton returns the button fired on a mouth-open edge.
func (c *Config) PrimaryButton() device.Button {
	b, ok := device.ParseButton(c.Mapper.PrimaryButton)
	if !ok {
		return device.BtnLeft
	}
	return b
}

// FaceConfig returns the landmark detector settings.
func (c *Config) FaceConfig() face.Config {
	fc := face.DefaultConfig()
	fc.MinConfidence = c.Face.MinConfidence
	fc.MinTrackingConf = c.Face.MinConfidence
	fc.Python = c.Face.Python
	fc.Script = c.Face.Script
	return fc
}

// BatcherConfig returns the sample batcher settings.
func (c *Config) BatcherConfig() movementlog.BatcherConfig {
	return movementlog.BatcherConfig{
		MinMovement: c.Samples.MinMovement,
		BatchSize:   c.Samples.BatchSize,
	}
}

// RecognizerConfig returns the head gesture recognizer settings.
func (c *Config) RecognizerConfig() gesture.RecognizerConfig {
	cooldown := c.Gestures.Cooldown
	if cooldown == 0 {
		cooldown = -1
	}
	return gesture.RecognizerConfig{
		BufferSize: c.Gestures.BufferSize,
		MinPoints:  c.Gestures.MinPoints,
		Cooldown:   cooldown,
	}
}
