package api

import (
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/ayusman/headpad/internal/store"
	"github.com/ayusman/headpad/internal/tracking"
)

func createSession(t *testing.T, s *store.Store, id string, started time.Time, samples ...tracking.MovementSample) {
	t.Helper()
	if err := s.Sessions().Create(&store.Session{ID: id, StartedAt: started, NeutralX: 320, NeutralY: 240, Filter: "moving_average"}); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if len(samples) > 0 {
		if err := s.Movements().Append(id, samples); err != nil {
			t.Fatalf("failed to append samples: %v", err)
		}
	}
}

func TestSessionHandler_List(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().Add(-time.Hour)
	createSession(t, s, "old", base)
	createSession(t, s, "new", base.Add(time.Minute))
	handler := NewSessionHandler(s)

	rec := doJSON(t, handler, http.MethodGet, "/api/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	resp := decode[listSessionsResponse](t, rec)
	if len(resp.Sessions) != 2 || resp.Sessions[0].ID != "new" {
		t.Fatalf("expected newest session first, got %+v", resp.Sessions)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/sessions?limit=1", "")
	if resp := decode[listSessionsResponse](t, rec); len(resp.Sessions) != 1 {
		t.Errorf("expected 1 session with limit, got %d", len(resp.Sessions))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/sessions?limit=-2", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d for a negative limit, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestSessionHandler_GetCountsSamples(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	createSession(t, s, "s1", now,
		tracking.MovementSample{Timestamp: now, DX: 1, DY: 2, Speed: 3},
		tracking.MovementSample{Timestamp: now.Add(time.Millisecond), DX: 2, DY: 2, Speed: 1},
	)
	handler := NewSessionHandler(s)

	rec := doJSON(t, handler, http.MethodGet, "/api/sessions/s1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	resp := decode[struct {
		ID          string  `json:"id"`
		NeutralX    float64 `json:"neutral_x"`
		SampleCount int     `json:"sample_count"`
	}](t, rec)
	if resp.ID != "s1" || resp.NeutralX != 320 || resp.SampleCount != 2 {
		t.Errorf("unexpected session response %+v", resp)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/sessions/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionHandler_Samples(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	createSession(t, s, "s1", now,
		tracking.MovementSample{Timestamp: now, DX: 2, DY: -4, Speed: 1},
		tracking.MovementSample{Timestamp: now.Add(time.Millisecond), DX: 4, DY: -4, Speed: 5},
		tracking.MovementSample{Timestamp: now.Add(2 * time.Millisecond), DX: 6, DY: -4, Speed: 3},
	)
	handler := NewSessionHandler(s)

	rec := doJSON(t, handler, http.MethodGet, "/api/sessions/s1/samples", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	resp := decode[samplesResponse](t, rec)
	if len(resp.Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(resp.Samples))
	}
	if resp.Summary.Count != 3 || resp.Summary.MeanDX != 4 || resp.Summary.MeanDY != -4 {
		t.Errorf("unexpected summary %+v", resp.Summary)
	}
	if resp.Summary.StdDevDY != 0 || resp.Summary.MaxSpeed != 5 || resp.Summary.MeanSpeed != 3 {
		t.Errorf("unexpected summary %+v", resp.Summary)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/sessions/s1/samples?limit=2", "")
	if resp := decode[samplesResponse](t, rec); len(resp.Samples) != 2 {
		t.Errorf("expected 2 samples with limit, got %d", len(resp.Samples))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/sessions/missing/samples", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	createSession(t, s, "s1", time.Now())
	handler := NewSessionHandler(s)

	rec := doJSON(t, handler, http.MethodDelete, "/api/sessions/s1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	rec = doJSON(t, handler, http.MethodDelete, "/api/sessions/s1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/sessions", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize([]tracking.MovementSample{{DX: -1, Speed: 2}, {DX: 1, Speed: 4}})
	if got.MeanDX != 0 || math.Abs(got.StdDevDX-1) > 1e-12 {
		t.Errorf("unexpected dx stats %+v", got)
	}
	if got.MeanSpeed != 3 || got.MaxSpeed != 4 {
		t.Errorf("unexpected speed stats %+v", got)
	}
	if empty := Summarize(nil); empty != (MovementSummary{}) {
		t.Errorf("expected zero summary, got %+v", empty)
	}
}
