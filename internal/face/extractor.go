package face

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/headpad/internal/log"
	"github.com/ayusman/headpad/internal/tracking"
)

// Extractor defaults, in pixels.
const (
	DefaultMouthThreshold = 15
	DefaultWinkThreshold  = 1
)

// Extractor turns detector output into tracking observations. Each
// accessor runs detection on the frame it is given; Observe runs it once
// and fills a whole Observation.
type Extractor struct {
	detector Detector

	// MouthThreshold is the inner lip gap, in pixels, above which the
	// mouth counts as open.
	MouthThreshold int
	// WinkThreshold is the left eye opening, in pixels, at or below
	// which the eye counts as closed.
	WinkThreshold int
}

// NewExtractor wraps a detector.
func NewExtractor(d Detector) *Extractor {
	return &Extractor{
		detector:       d,
		MouthThreshold: DefaultMouthThreshold,
		WinkThreshold:  DefaultWinkThreshold,
	}
}

// Detector returns the wrapped detector.
func (e *Extractor) Detector() Detector { return e.detector }

func (e *Extractor) detect(frame *gocv.Mat) (*Landmarks, int, int, error) {
	lm, err := e.detector.Detect(frame)
	if err != nil || lm == nil {
		return nil, 0, 0, err
	}
	return lm, frame.Cols(), frame.Rows(), nil
}

// NosePosition returns the nose tip in pixels. ok is false when no face
// was found.
func (e *Extractor) NosePosition(frame *gocv.Mat) (tracking.Point, bool, error) {
	lm, w, h, err := e.detect(frame)
	if err != nil || lm == nil {
		return tracking.Point{}, false, err
	}
	x, y := lm.NosePixel(w, h)
	return tracking.Point{X: float64(x), Y: float64(y)}, true, nil
}

// MouthOpen reports whether the lips are further apart than
// MouthThreshold. ok is false when no face was found.
func (e *Extractor) MouthOpen(frame *gocv.Mat) (open, ok bool, err error) {
	lm, _, h, err := e.detect(frame)
	if err != nil || lm == nil {
		return false, false, err
	}
	return lm.MouthGap(h) > e.MouthThreshold, true, nil
}

// LeftEyeDistance returns the left eye opening in pixels.
func (e *Extractor) LeftEyeDistance(frame *gocv.Mat) (int, bool, error) {
	lm, _, h, err := e.detect(frame)
	if err != nil || lm == nil {
		return 0, false, err
	}
	return lm.LeftEyeGap(h), true, nil
}

// LeftEyeWinking reports whether the left eye opening is at most
// threshold pixels. No face means not winking.
func (e *Extractor) LeftEyeWinking(frame *gocv.Mat, threshold int) (bool, error) {
	gap, ok, err := e.LeftEyeDistance(frame)
	if err != nil || !ok {
		return false, err
	}
	return gap <= threshold, nil
}

// Observe runs detection once and converts the result.
func (e *Extractor) Observe(frame *gocv.Mat) (tracking.Observation, error) {
	lm, w, h, err := e.detect(frame)
	if err != nil {
		return tracking.Observation{Time: time.Now()}, err
	}
	return e.FromLandmarks(lm, w, h, time.Now()), nil
}

// FromLandmarks converts landmarks for a frame of the given size. A nil
// face yields an observation with nothing detected.
func (e *Extractor) FromLandmarks(lm *Landmarks, width, height int, at time.Time) tracking.Observation {
	obs := tracking.Observation{Time: at}
	if lm == nil {
		return obs
	}
	x, y := lm.NosePixel(width, height)
	obs.Nose = tracking.Point{X: float64(x), Y: float64(y)}
	obs.NoseOK = true
	obs.MouthOpen = lm.MouthGap(height) > e.MouthThreshold
	obs.MouthOK = true
	obs.Winking = lm.LeftEyeGap(height) <= e.WinkThreshold
	return obs
}

// NoseSource adapts a frame reader to tracking.NoseSource for calibration.
// Only read errors are returned. A detector failure on a readable frame
// is logged and reported as a frame without a face.
func (e *Extractor) NoseSource(read func() (*gocv.Mat, error)) tracking.NoseSource {
	return tracking.NoseSourceFunc(func() (tracking.Point, bool, error) {
		frame, err := read()
		if err != nil {
			return tracking.Point{}, false, err
		}
		defer frame.Close()

		pos, ok, err := e.NosePosition(frame)
		if err != nil {
			log.Debug("landmark detection failed during calibration", "err", err)
			return tracking.Point{}, false, nil
		}
		return pos, ok, nil
	})
}
