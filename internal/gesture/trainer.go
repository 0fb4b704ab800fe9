package gesture

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoSamples is returned when training is given nothing to train on.
var ErrNoSamples = errors.New("no samples provided")

// Sample is one recorded performance of a gesture.
type Sample struct {
	Path      []PathPoint `json:"path"`
	Timestamp int64       `json:"timestamp"`
}

// ParseSamples decodes raw JSON samples.
func ParseSamples(raw []json.RawMessage) ([]Sample, error) {
	samples := make([]Sample, 0, len(raw))
	for i, r := range raw {
		var s Sample
		if err := json.Unmarshal(r, &s); err != nil {
			return nil, fmt.Errorf("failed to parse sample %d: %w", i, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// Train averages several recorded paths into one template path. Every
// path is resampled to the length of the first one before averaging.
func Train(samples []Sample) ([]PathPoint, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	for i, s := range samples {
		if len(s.Path) < 2 {
			return nil, fmt.Errorf("sample %d has insufficient path points", i)
		}
	}

	n := len(samples[0].Path)
	resampled := make([][]PathPoint, len(samples))
	for i, s := range samples {
		resampled[i] = resamplePath(s.Path, n)
	}

	averaged := make([]PathPoint, n)
	count := float64(len(samples))
	for i := range averaged {
		var sx, sy float64
		for _, path := range resampled {
			sx += path[i].X
			sy += path[i].Y
		}
		averaged[i] = PathPoint{
			X:         sx / count,
			Y:         sy / count,
			Timestamp: resampled[0][i].Timestamp,
		}
	}
	return averaged, nil
}

// resamplePath linearly interpolates path to exactly n points.
func resamplePath(path []PathPoint, n int) []PathPoint {
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 || n <= 1 {
		return []PathPoint{path[0]}
	}

	out := make([]PathPoint, n)
	for i := range out {
		pos := float64(i) / float64(n-1) * float64(len(path)-1)
		idx := min(int(pos), len(path)-2)
		frac := pos - float64(idx)

		p1, p2 := path[idx], path[idx+1]
		out[i] = PathPoint{
			X:         p1.X + frac*(p2.X-p1.X),
			Y:         p1.Y + frac*(p2.Y-p1.Y),
			Timestamp: p1.Timestamp + int64(frac*float64(p2.Timestamp-p1.Timestamp)),
		}
	}
	return out
}
