package face

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// Queued results are returned in order; once the queue is drained the
// last set face is returned on every call.
type MockDetector struct {
	mu    sync.Mutex
	face  *Landmarks
	queue []*Landmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFace sets the face returned by Detect. nil means no face.
func (m *MockDetector) SetFace(face *Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.face = face
}

// Queue appends faces returned by successive Detect calls.
func (m *MockDetector) Queue(faces ...*Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, faces...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next queued face, the preset face, or the error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.face, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// NeutralFace returns a face looking straight at the camera with the
// mouth closed and both eyes open.
func NeutralFace() *Landmarks {
	return &Landmarks{
		Nose:         Point3D{X: 0.5, Y: 0.5, Z: -0.0625},
		MouthUpper:   Point3D{X: 0.5, Y: 0.625},
		MouthLower:   Point3D{X: 0.5, Y: 0.640625},
		LeftEyeInner: Point3D{X: 0.5625, Y: 0.375},
		LeftEyeLower: Point3D{X: 0.578125, Y: 0.390625},
		Score:        0.97,
	}
}

// OffsetFace returns NeutralFace with every point shifted by (dx, dy)
// normalized units.
func OffsetFace(dx, dy float64) *Landmarks {
	f := NeutralFace()
	for _, p := range []*Point3D{&f.Nose, &f.MouthUpper, &f.MouthLower, &f.LeftEyeInner, &f.LeftEyeLower} {
		p.X += dx
		p.Y += dy
	}
	return f
}

// MouthOpenFace returns NeutralFace with the lips well apart.
func MouthOpenFace() *Landmarks {
	f := NeutralFace()
	f.MouthLower.Y = 0.6875
	return f
}

// WinkingFace returns NeutralFace with the left eye closed.
func WinkingFace() *Landmarks {
	f := NeutralFace()
	f.LeftEyeLower.Y = f.LeftEyeInner.Y
	return f
}
