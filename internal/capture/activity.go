package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Activity detection constants
const (
	// BlurSize is the Gaussian kernel size applied before differencing.
	BlurSize = 21
	// DiffThreshold is the per-pixel intensity change that counts.
	DiffThreshold = 25
	// DefaultActivityThreshold is the changed-pixel percentage that
	// marks a frame as active.
	DefaultActivityThreshold = 1.0
)

// ActivityDetector measures scene change between consecutive frames.
// The frame loop uses it to drop to the idle frame rate when nobody is
// moving in front of the camera.
type ActivityDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewActivityDetector creates a detector that reports activity when more
// than threshold percent of pixels changed.
func NewActivityDetector(threshold float64) *ActivityDetector {
	if threshold <= 0 {
		threshold = DefaultActivityThreshold
	}
	return &ActivityDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether the
// scene is active together with the changed-pixel percentage. The first
// frame only sets the baseline.
func (a *ActivityDetector) Detect(frame *gocv.Mat) (bool, float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: BlurSize, Y: BlurSize}, 0, 0, gocv.BorderDefault)

	if !a.initialized {
		blurred.CopyTo(&a.prevGray)
		a.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, a.prevGray, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0
	blurred.CopyTo(&a.prevGray)

	return changed > a.threshold, changed
}

// Threshold returns the activity threshold in percent.
func (a *ActivityDetector) Threshold() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.threshold
}

// Reset drops the baseline frame.
func (a *ActivityDetector) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.release()
}

// Close releases resources used by the detector.
func (a *ActivityDetector) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.release()
}

func (a *ActivityDetector) release() {
	if !a.prevGray.Empty() {
		a.prevGray.Close()
		a.prevGray = gocv.NewMat()
	}
	a.initialized = false
}
