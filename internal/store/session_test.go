package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/headpad/internal/tracking"
)

var approxTime = cmpopts.EquateApproxTime(time.Millisecond)

func TestSessionRepository_CRUD(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sess := &Session{
		ID:                 "session-1",
		StartedAt:          started,
		NeutralX:           320,
		NeutralY:           240,
		ThresholdX:         20,
		ThresholdY:         20,
		SpreadX:            1.5,
		SpreadY:            0.5,
		CalibrationSamples: 19,
		Filter:             "moving-average",
	}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID("session-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if diff := cmp.Diff(sess, got, approxTime); diff != "" {
		t.Errorf("GetByID() mismatch (-want +got):\n%s", diff)
	}

	ended := started.Add(5 * time.Minute)
	if err := repo.End("session-1", ended); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	got, _ = repo.GetByID("session-1")
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, ended)
	}

	if err := repo.End("missing", ended); !errors.Is(err, ErrNotFound) {
		t.Errorf("End(missing) error = %v, want ErrNotFound", err)
	}

	if err := repo.Delete("session-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID("session-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID after delete error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		err := repo.Create(&Session{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour), ThresholdX: 20, ThresholdY: 20})
		if err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	all, err := repo.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var ids []string
	for _, sess := range all {
		ids = append(ids, sess.ID)
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, ids); diff != "" {
		t.Errorf("List() order mismatch (-want +got):\n%s", diff)
	}

	limited, _ := repo.List(2)
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d sessions", len(limited))
	}
}

func TestMovementRepository(t *testing.T) {
	s := newTestStore(t)
	if err := s.Sessions().Create(&Session{ID: "s1", ThresholdX: 20, ThresholdY: 20}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	w := s.Movements().ForSession("s1")
	samples := []tracking.MovementSample{
		{Timestamp: time.Unix(1700000000, 0), DX: 3, DY: 4, Speed: 5},
		{Timestamp: time.Unix(1700000000, 66_000_000), DX: -6, DY: 8, Speed: 10},
	}
	if err := w.Append(samples); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.Append(nil); err != nil {
		t.Fatalf("Append(nil) error = %v", err)
	}

	got, err := s.Movements().List("s1", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if diff := cmp.Diff(samples, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	n, _ := s.Movements().Count("s1")
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}

	if err := s.Movements().Append("no-such-session", samples); err == nil {
		t.Error("Append to unknown session should violate the foreign key")
	}

	if err := s.Sessions().Delete("s1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	n, _ = s.Movements().Count("s1")
	if n != 0 {
		t.Errorf("samples should cascade on session delete, %d left", n)
	}
}
