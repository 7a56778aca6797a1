package jobs

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/hibiken/asynq"
)

func TestPublishEnqueuesAuditTask(t *testing.T) {
	store, mr := newTestStore(t, 10)
	manager, err := NewManager("redis://"+mr.Addr(), store, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })

	ctx := context.Background()
	event := Event{
		Type:       EventLoginSucceeded,
		UserID:     "u-7",
		Email:      "erin@example.com",
		ClientIP:   "192.0.2.7",
		OccurredAt: time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC),
	}
	if err := manager.Publish(ctx, event); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = inspector.Close() })

	pending, err := inspector.ListPendingTasks(queueAudit)
	if err != nil {
		t.Fatalf("ListPendingTasks returned error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(pending))
	}
	info := pending[0]
	if info.Type != taskTypeAuthEvent || info.Queue != queueAudit || info.MaxRetry != 3 {
		t.Fatalf("unexpected task: type=%s queue=%s maxRetry=%d", info.Type, info.Queue, info.MaxRetry)
	}

	// キューから取り出したペイロードをワーカーに渡し、保存まで通す
	if err := manager.handleAuthEvent(ctx, asynq.NewTask(info.Type, info.Payload)); err != nil {
		t.Fatalf("handleAuthEvent returned error: %v", err)
	}
	events, err := store.Recent(ctx, "u-7")
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.Type != event.Type || got.Email != event.Email || got.ClientIP != event.ClientIP || !got.OccurredAt.Equal(event.OccurredAt) {
		t.Fatalf("stored event = %+v, want %+v", got, event)
	}
}

func TestPublishRejectsInvalidEvent(t *testing.T) {
	store, mr := newTestStore(t, 10)
	manager, err := NewManager("redis://"+mr.Addr(), store, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })

	if err := manager.Publish(context.Background(), Event{UserID: "u-1"}); err == nil {
		t.Fatal("expected error for event without type")
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = inspector.Close() })
	if pending, _ := inspector.ListPendingTasks(queueAudit); len(pending) != 0 {
		t.Fatalf("invalid event must not be enqueued, got %d tasks", len(pending))
	}
}
