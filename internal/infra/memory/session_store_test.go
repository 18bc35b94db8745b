package memory

import (
	"context"
	"testing"
	"time"

	"classroom-sim-service/internal/app"
	"classroom-sim-service/internal/domain"
	"classroom-sim-service/internal/sim"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore(app.NewSessionFactory(sim.ArchetypeRules(), 1))

	session := store.GetOrCreate("room-1")
	if session == nil {
		t.Fatalf("expected session")
	}
	if again := store.GetOrCreate("room-1"); again != session {
		t.Fatalf("expected the same session on second lookup")
	}
	if _, ok := store.Get("room-1"); !ok {
		t.Fatalf("expected session present")
	}

	store.DeleteIfIdle("room-1")
	if _, ok := store.Get("room-1"); ok {
		t.Fatalf("expected session removed when idle")
	}
}

func TestSessionStoreKeepsLiveLessons(t *testing.T) {
	rules := sim.FlatRules()
	store := NewSessionStore(app.NewSessionFactory(rules, 1))
	service := app.NewClassroomService(store, NewStateStore(), nil)
	ctx := context.Background()

	if _, err := service.Open(ctx, "room-1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := service.StartLesson(ctx, "room-1", domain.LessonPlan{Topic: "Fractions"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	store.DeleteIfIdle("room-1")
	if _, ok := store.Get("room-1"); !ok {
		t.Fatalf("expected live session to survive")
	}
}

func TestSessionStoreCloseStopsTicks(t *testing.T) {
	rules := sim.ArchetypeRules()
	rules.TickInterval = time.Millisecond
	store := NewSessionStore(app.NewSessionFactory(rules, 1))
	service := app.NewClassroomService(store, nil, nil)
	ctx := context.Background()

	if _, err := service.Open(ctx, "room-1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := service.StartLesson(ctx, "room-1", domain.LessonPlan{Topic: "Gravity"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	store.Close()
	if _, ok := store.Get("room-1"); ok {
		t.Fatalf("expected sessions cleared on close")
	}
}

func TestStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore()

	if _, err := store.Load(ctx, "room-1", "streak"); err != domain.ErrBlobNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	payload := []byte(`{"days":2,"lastDate":"2024-03-11"}`)
	if err := store.Save(ctx, "room-1", "streak", payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload[0] = 'x'

	got, err := store.Load(ctx, "room-1", "streak")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"days":2,"lastDate":"2024-03-11"}` {
		t.Fatalf("unexpected blob %s", got)
	}
	if _, err := store.Load(ctx, "room-2", "streak"); err != domain.ErrBlobNotFound {
		t.Fatalf("expected classrooms to be isolated, got %v", err)
	}
}
