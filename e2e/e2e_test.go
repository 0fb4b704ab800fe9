package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/headpad/internal/app"
	"github.com/ayusman/headpad/internal/capture"
	"github.com/ayusman/headpad/internal/config"
	"github.com/ayusman/headpad/internal/device"
	"github.com/ayusman/headpad/internal/face"
	"github.com/ayusman/headpad/internal/server"
	"github.com/ayusman/headpad/internal/store"
	"github.com/ayusman/headpad/testdata"
)

type harness struct {
	app    *app.App
	det    *face.MockDetector
	rec    *device.Recorder
	store  *store.Store
	ts     *httptest.Server
	plugin string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins are not supported on Windows")
	}

	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cfg := config.DefaultConfig()
	cfg.Calibration.Frames = 5
	cfg.Filter.WindowSize = 1
	cfg.Samples.BatchSize = 1
	cfg.Gestures.BufferSize = 5
	cfg.Gestures.MinPoints = 5
	cfg.PluginDir = filepath.Join(dir, "plugins")
	pdir := testdata.RecorderPlugin(t, cfg.PluginDir, "recorder", "click")

	det := face.NewMockDetector()
	det.SetFace(face.NeutralFace())
	rec := device.NewRecorder()

	a, err := app.New(app.Options{
		Settings: cfg,
		Store:    s,
		Camera:   capture.NewMockCamera(testdata.Frames(t, 4), true),
		Detector: det,
		Sink:     rec,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	srv := server.New(server.Config{
		App:     a,
		Store:   s,
		Plugins: a.Plugins().Manager(),
		Frames:  a.Frames(),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &harness{app: a, det: det, rec: rec, store: s, ts: ts, plugin: pdir}
}

func (h *harness) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, h.ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := h.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s decode error = %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (h *harness) step(t *testing.T, faces ...*face.Landmarks) {
	t.Helper()
	h.det.Queue(faces...)
	for range faces {
		if _, err := h.app.Step(); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}
}

func TestE2E_TrainBindAndNod(t *testing.T) {
	h := newHarness(t)

	var gesture struct {
		ID string `json:"id"`
	}
	code := h.do(t, http.MethodPost, "/api/gestures", map[string]any{
		"name":      "nod",
		"tolerance": 0.2,
		"samples":   []json.RawMessage{testdata.NodSample(30), testdata.NodSample(40)},
	}, &gesture)
	if code != http.StatusCreated {
		t.Fatalf("create gesture status = %d, want %d", code, http.StatusCreated)
	}
	if h.app.Matcher().Len() != 1 {
		t.Fatalf("matcher holds %d templates, want the trained one", h.app.Matcher().Len())
	}

	code = h.do(t, http.MethodPost, "/api/actions", map[string]any{
		"gesture_id":  gesture.ID,
		"plugin_name": "recorder",
		"action_name": "click",
		"config":      map[string]int{"button": 1},
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("create action status = %d, want %d", code, http.StatusCreated)
	}

	if err := h.app.Calibrate(context.Background()); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}

	down := face.OffsetFace(0, 0.0625)
	h.step(t, face.NeutralFace(), down, face.NeutralFace(), down, face.NeutralFace())

	// The action runs outside the frame loop.
	var status app.Status
	deadline := time.Now().Add(5 * time.Second)
	for status.LastGesture == nil && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
		h.do(t, http.MethodGet, "/api/status", nil, &status)
	}
	if status.LastGesture == nil || status.LastGesture.Gesture != "nod" || status.LastGesture.Error != "" {
		t.Fatalf("status does not report the nod: %+v", status.LastGesture)
	}

	data, err := os.ReadFile(filepath.Join(h.plugin, "request.json"))
	if err != nil {
		t.Fatalf("plugin did not run: %v", err)
	}
	if !strings.Contains(string(data), `"gesture":"nod"`) {
		t.Errorf("unexpected plugin request %s", data)
	}
}

func TestE2E_SessionsRecordMovement(t *testing.T) {
	h := newHarness(t)

	code := h.do(t, http.MethodPost, "/api/recenter", nil, nil)
	if code != http.StatusConflict {
		t.Errorf("recenter before calibration status = %d, want %d", code, http.StatusConflict)
	}

	if err := h.app.Calibrate(context.Background()); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	right := face.OffsetFace(0.0625, 0)
	h.step(t, right, right, face.NeutralFace())

	var status app.Status
	h.do(t, http.MethodGet, "/api/status", nil, &status)
	if !status.Calibrated || status.SessionID == "" {
		t.Fatalf("unexpected status %+v", status)
	}

	var samples struct {
		Samples []json.RawMessage `json:"samples"`
		Summary struct {
			Count  int     `json:"count"`
			MeanDX float64 `json:"mean_dx"`
		} `json:"summary"`
	}
	code = h.do(t, http.MethodGet, "/api/sessions/"+status.SessionID+"/samples", nil, &samples)
	if code != http.StatusOK {
		t.Fatalf("samples status = %d, want %d", code, http.StatusOK)
	}
	if len(samples.Samples) == 0 || samples.Summary.Count != len(samples.Samples) {
		t.Errorf("expected recorded samples, got %d (summary %d)", len(samples.Samples), samples.Summary.Count)
	}
	if samples.Summary.MeanDX <= 0 {
		t.Errorf("mean dx = %v, want positive for a head turned right", samples.Summary.MeanDX)
	}

	if code := h.do(t, http.MethodPost, "/api/recenter", nil, nil); code != http.StatusOK {
		t.Errorf("recenter status = %d, want %d", code, http.StatusOK)
	}
}

func TestE2E_SignalSocket(t *testing.T) {
	h := newHarness(t)
	if err := h.app.Calibrate(context.Background()); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}

	url := "ws" + strings.TrimPrefix(h.ts.URL, "http") + "/api/signal"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// The handler subscribes after the upgrade; step until a frame arrives.
	got := make(chan server.SignalMessage, 1)
	go func() {
		var msg server.SignalMessage
		if err := conn.ReadJSON(&msg); err == nil {
			got <- msg
		}
		close(got)
	}()

	deadline := time.After(5 * time.Second)
	for {
		h.step(t, face.OffsetFace(0.0625, 0))
		select {
		case msg, ok := <-got:
			if !ok {
				t.Fatal("socket closed before a frame arrived")
			}
			if msg.Type != "frame" || msg.Frame == nil || !msg.Frame.Detected {
				t.Errorf("unexpected message %+v", msg)
			}
			return
		case <-deadline:
			t.Fatal("no frame received")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
