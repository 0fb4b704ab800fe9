// Package gesture recognizes head gestures such as a nod or a shake from
// the path the nose traces relative to its neutral position.
package gesture

// PathPoint is one point of a head path, in pixels relative to neutral.
type PathPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"t"` // milliseconds
}

// Template is a trained head gesture.
type Template struct {
	ID        string
	Name      string
	Path      []PathPoint
	Tolerance float64 // maximum normalized DTW distance for a match
}

// Match is a template that matched an input path.
type Match struct {
	Template *Template
	Score    float64 // 1 / (1 + Distance)
	Distance float64
}

// Extent returns the width and height of the bounding box of a path.
func Extent(path []PathPoint) (w, h float64) {
	if len(path) == 0 {
		return 0, 0
	}
	minX, maxX := path[0].X, path[0].X
	minY, maxY := path[0].Y, path[0].Y
	for _, p := range path[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return maxX - minX, maxY - minY
}
