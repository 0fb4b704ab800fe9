// Package testdata holds fixtures shared by the integration tests.
package testdata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

// Frames returns n blank 640x480 BGR frames, released when the test ends.
func Frames(t testing.TB, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

// PathPoint mirrors the wire format of a recorded head path point.
type PathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}

// NodSample returns a recorded nod of the given depth in pixels: down
// and back up, twice.
func NodSample(depth float64) json.RawMessage {
	ys := []float64{0, depth, 0, depth, 0}
	path := make([]PathPoint, len(ys))
	for i, y := range ys {
		path[i] = PathPoint{Y: y, T: int64(i) * 33}
	}
	data, _ := json.Marshal(map[string]any{"path": path})
	return data
}

// RecorderPlugin installs a shell plugin under dir that saves the request
// it receives to request.json in its own directory. It returns the plugin
// directory.
func RecorderPlugin(t testing.TB, dir, name string, actions ...string) string {
	t.Helper()
	pdir := filepath.Join(dir, name)
	if err := os.MkdirAll(pdir, 0o755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	script := "#!/bin/sh\ncat > \"$(dirname \"$0\")/request.json\"\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(pdir, "run.sh"), []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write plugin: %v", err)
	}
	manifest, _ := json.Marshal(map[string]any{
		"name":       name,
		"version":    "1.0.0",
		"executable": "run.sh",
		"actions":    actions,
	})
	if err := os.WriteFile(filepath.Join(pdir, "plugin.json"), manifest, 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pdir
}
