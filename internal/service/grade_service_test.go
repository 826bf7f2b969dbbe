package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/model"
)

func newTestGradeService(store *memGradeStore, pub HistoryPublisher) *GradeService {
	return NewGradeService(store, NewHistoryRecorder(), pub, nil, zerolog.Nop())
}

func TestGradeServiceCreateRecordsHistory(t *testing.T) {
	store := newMemGradeStore()
	pub := &recordingPublisher{}
	svc := newTestGradeService(store, pub)
	ctx := context.Background()

	g, err := svc.Create(ctx, 12, " Math ", "91", ptr("t@school.test"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.ID == 0 || g.Subject != "Math" || g.Grade != 91 {
		t.Fatalf("grade = %+v", g)
	}

	hist := store.historyFor(g.ID)
	if len(hist) != 1 {
		t.Fatalf("history entries = %d, want 1", len(hist))
	}
	h := hist[0]
	if h.Action != model.HistoryCreate || h.OldValue != nil || *h.NewValue != 91 || *h.ChangedBy != "t@school.test" {
		t.Errorf("history = %+v", h)
	}
	if pub.count() != 1 {
		t.Errorf("published %d entries, want 1", pub.count())
	}
}

func TestGradeServiceCreateInvalidWritesNothing(t *testing.T) {
	store := newMemGradeStore()
	svc := newTestGradeService(store, nil)

	_, err := svc.Create(context.Background(), 1, "Math", 101, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(store.grades) != 0 || len(store.history) != 0 {
		t.Error("invalid create persisted state")
	}
}

func TestGradeServiceUpdate(t *testing.T) {
	store := newMemGradeStore()
	pub := &recordingPublisher{}
	svc := newTestGradeService(store, pub)
	ctx := context.Background()

	g, err := svc.Create(ctx, 3, "Science", 70, nil)
	if err != nil {
		t.Fatal(err)
	}

	same, err := svc.Update(ctx, g.ID, 70, nil)
	if err != nil {
		t.Fatalf("no-op update: %v", err)
	}
	if same.Grade != 70 {
		t.Errorf("grade = %d", same.Grade)
	}
	if n := len(store.historyFor(g.ID)); n != 1 {
		t.Fatalf("no-op update wrote history: %d entries", n)
	}

	updated, err := svc.Update(ctx, g.ID, "85", ptr("admin"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Grade != 85 {
		t.Errorf("grade = %d, want 85", updated.Grade)
	}
	hist := store.historyFor(g.ID)
	if len(hist) != 2 {
		t.Fatalf("history entries = %d, want 2", len(hist))
	}
	last := hist[1]
	if last.Action != model.HistoryUpdate || *last.OldValue != 70 || *last.NewValue != 85 {
		t.Errorf("update history = %+v", last)
	}
	if pub.count() != 2 {
		t.Errorf("published %d, want 2", pub.count())
	}
}

func TestGradeServiceUpdateErrors(t *testing.T) {
	store := newMemGradeStore()
	svc := newTestGradeService(store, nil)

	if _, err := svc.Update(context.Background(), 404, 50, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing grade: err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(context.Background(), 1, "abc", nil); !errors.Is(err, ErrValidation) {
		t.Errorf("bad value: err = %v, want ErrValidation", err)
	}
}

func TestGradeServiceDelete(t *testing.T) {
	store := newMemGradeStore()
	svc := newTestGradeService(store, nil)
	ctx := context.Background()

	g, err := svc.Create(ctx, 5, "History", 64, nil)
	if err != nil {
		t.Fatal(err)
	}

	snap, err := svc.Delete(ctx, g.ID, ptr("admin"))
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if snap.ID != g.ID || snap.Grade != 64 || snap.Subject != "History" {
		t.Errorf("snapshot = %+v", snap)
	}
	if _, err := svc.GetByID(ctx, g.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("grade still present: %v", err)
	}

	hist := store.historyFor(g.ID)
	if len(hist) != 2 {
		t.Fatalf("history entries = %d, want 2 (history survives deletion)", len(hist))
	}
	if hist[1].Action != model.HistoryDelete || hist[1].NewValue != nil || *hist[1].OldValue != 64 {
		t.Errorf("delete history = %+v", hist[1])
	}

	before := len(store.history)
	if _, err := svc.Delete(ctx, g.ID, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
	if len(store.history) != before {
		t.Error("failed delete wrote history")
	}
}

func TestGradeServiceMutationIsAtomic(t *testing.T) {
	store := newMemGradeStore()
	store.failHistory = true
	pub := &recordingPublisher{}
	svc := newTestGradeService(store, pub)

	_, err := svc.Create(context.Background(), 1, "Math", 80, nil)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	if len(store.grades) != 0 {
		t.Error("grade committed without its history entry")
	}
	if pub.count() != 0 {
		t.Error("published an uncommitted entry")
	}
}

func TestGradeServiceWithValidator(t *testing.T) {
	store := newMemGradeStore()
	base := newTestGradeService(store, nil)
	v, _ := NewGradeValidator(60, 100)
	strict := base.WithValidator(v)

	if _, err := strict.Create(context.Background(), 1, "Math", 59, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("strict validator accepted 59: %v", err)
	}
	if _, err := base.Create(context.Background(), 1, "Math", 59, nil); err != nil {
		t.Errorf("base validator changed: %v", err)
	}
}
