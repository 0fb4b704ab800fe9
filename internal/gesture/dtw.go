package gesture

import "math"

// DTWDistance calculates the Dynamic Time Warping distance between two
// paths, normalized by the longer path length. Returns +Inf if either
// path is empty.
func DTWDistance(a, b []PathPoint) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	// Two rolling rows of the (n+1) x (m+1) cost matrix.
	prev := make([]float64, m+1)
	cur := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		cur[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			cost := pointDistance(a[i-1], b[j-1])
			cur[j] = cost + min(prev[j], cur[j-1], prev[j-1])
		}
		prev, cur = cur, prev
	}

	return prev[m] / float64(max(n, m))
}

func pointDistance(a, b PathPoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// normalizePath scales a path into the unit square, independently per
// axis. A flat axis maps to 0. Timestamps are kept.
func normalizePath(path []PathPoint) []PathPoint {
	if len(path) == 0 {
		return nil
	}

	minX, minY := path[0].X, path[0].Y
	for _, p := range path[1:] {
		minX, minY = min(minX, p.X), min(minY, p.Y)
	}
	w, h := Extent(path)

	out := make([]PathPoint, len(path))
	for i, p := range path {
		out[i].Timestamp = p.Timestamp
		if w > 0 {
			out[i].X = (p.X - minX) / w
		}
		if h > 0 {
			out[i].Y = (p.Y - minY) / h
		}
	}
	return out
}
