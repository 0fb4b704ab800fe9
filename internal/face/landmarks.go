// Package face extracts the facial landmarks that drive head tracking:
// the nose tip, the inner lips and the left eye lids.
package face

// FaceMesh landmark indices used by the extractor.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip      = 1
	MouthUpper   = 13
	MouthLower   = 14
	LeftEyeInner = 133
	LeftEyeLower = 144
)

// Point3D is a landmark in normalized image coordinates. X and Y are in
// [0, 1] relative to the frame; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmarks are the subset of face mesh points the extractor consumes.
type Landmarks struct {
	Nose         Point3D `json:"nose"`
	MouthUpper   Point3D `json:"mouth_upper"`
	MouthLower   Point3D `json:"mouth_lower"`
	LeftEyeInner Point3D `json:"left_eye_inner"`
	LeftEyeLower Point3D `json:"left_eye_lower"`
	Score        float64 `json:"score"`
}

// toPixel truncates a normalized coordinate to a whole pixel.
func toPixel(v float64, size int) int {
	return int(v * float64(size))
}

// NosePixel returns the nose tip in pixel coordinates.
func (l *Landmarks) NosePixel(width, height int) (int, int) {
	return toPixel(l.Nose.X, width), toPixel(l.Nose.Y, height)
}

// MouthGap returns the vertical distance in pixels between the inner lips.
func (l *Landmarks) MouthGap(height int) int {
	return absInt(toPixel(l.MouthLower.Y, height) - toPixel(l.MouthUpper.Y, height))
}

// LeftEyeGap returns the vertical distance in pixels between the two left
// eye points.
func (l *Landmarks) LeftEyeGap(height int) int {
	return absInt(toPixel(l.LeftEyeLower.Y, height) - toPixel(l.LeftEyeInner.Y, height))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
