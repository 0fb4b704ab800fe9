package gesture

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestTrain_Average(t *testing.T) {
	samples := []Sample{
		{Path: []PathPoint{{X: 0, Y: 0, Timestamp: 0}, {X: 10, Y: 0, Timestamp: 100}}},
		{Path: []PathPoint{{X: 0, Y: 10}, {X: 5, Y: 10}, {X: 10, Y: 10}}},
	}

	got, err := Train(samples)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	want := []PathPoint{{X: 0, Y: 5, Timestamp: 0}, {X: 10, Y: 5, Timestamp: 100}}
	if len(got) != len(want) {
		t.Fatalf("expected %d points (length of the first sample), got %d", len(want), len(got))
	}
	for i := range want {
		if !pointsEqual(got[i], want[i]) {
			t.Errorf("point %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestTrain_Errors(t *testing.T) {
	if _, err := Train(nil); !errors.Is(err, ErrNoSamples) {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}

	_, err := Train([]Sample{{Path: []PathPoint{{X: 1}}}})
	if err == nil {
		t.Error("expected error for a single-point sample")
	}
}

func TestParseSamples(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`{"path":[{"x":1,"y":2,"t":0},{"x":3,"y":4,"t":66}],"timestamp":5}`),
	}
	samples, err := ParseSamples(raw)
	if err != nil {
		t.Fatalf("ParseSamples() error = %v", err)
	}
	if len(samples) != 1 || len(samples[0].Path) != 2 || samples[0].Path[1].Timestamp != 66 {
		t.Errorf("unexpected samples: %+v", samples)
	}

	if _, err := ParseSamples([]json.RawMessage{json.RawMessage(`{`)}); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestResamplePath(t *testing.T) {
	path := []PathPoint{{X: 0, Y: 0, Timestamp: 0}, {X: 10, Y: 20, Timestamp: 100}}

	got := resamplePath(path, 3)
	want := []PathPoint{{X: 0, Y: 0, Timestamp: 0}, {X: 5, Y: 10, Timestamp: 50}, {X: 10, Y: 20, Timestamp: 100}}
	for i := range want {
		if !pointsEqual(got[i], want[i]) {
			t.Errorf("point %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	if resamplePath(nil, 3) != nil {
		t.Error("expected nil for an empty path")
	}
	if got := resamplePath(path[:1], 4); len(got) != 1 {
		t.Errorf("expected a single point, got %d", len(got))
	}
}

func pointsEqual(a, b PathPoint) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9 && a.Timestamp == b.Timestamp
}
