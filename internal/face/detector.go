package face

import "gocv.io/x/gocv"

// Detector finds a single face in a frame.
type Detector interface {
	// Detect returns the landmarks of the most prominent face, or nil when
	// no face is visible.
	Detect(frame *gocv.Mat) (*Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// MinConfidence is the minimum detection confidence (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence (0.0-1.0).
	MinTrackingConf float64

	// RefineLandmarks enables the iris/lip refinement model.
	RefineLandmarks bool

	// Python overrides the interpreter used for the mesh service.
	Python string

	// Script overrides the mesh service script location.
	Script string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		RefineLandmarks: true,
	}
}
