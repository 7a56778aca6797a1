package profile

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := &Profile{Email: "alice@example.com", HashedPassword: "digest"}
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Fatalf("expected ID and timestamps to be set: %+v", p)
	}

	byEmail, err := store.FindByEmail(ctx, "alice@example.com")
	if err != nil || byEmail == nil || byEmail.ID != p.ID {
		t.Fatalf("FindByEmail = %+v, %v", byEmail, err)
	}
	byID, err := store.FindByID(ctx, p.ID)
	if err != nil || byID == nil || byID.Email != p.Email {
		t.Fatalf("FindByID = %+v, %v", byID, err)
	}

	// 大文字小文字は区別する
	if other, _ := store.FindByEmail(ctx, "ALICE@example.com"); other != nil {
		t.Fatalf("email lookup must be case-sensitive, got %+v", other)
	}

	if err := store.DeleteByID(ctx, p.ID); err != nil {
		t.Fatalf("DeleteByID error: %v", err)
	}
	if err := store.DeleteByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if gone, _ := store.FindByEmail(ctx, "alice@example.com"); gone != nil {
		t.Fatalf("expected profile to be deleted, got %+v", gone)
	}
}

func TestMemoryStoreDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const workers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Create(ctx, &Profile{Email: "race@example.com", HashedPassword: "digest"})
			if errors.Is(err, ErrDuplicateEmail) {
				mu.Lock()
				duplicates++
				mu.Unlock()
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if duplicates != workers-1 {
		t.Fatalf("expected %d duplicates, got %d", workers-1, duplicates)
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one profile, got %d", store.Len())
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := &Profile{Email: "bob@example.com", HashedPassword: "digest"}
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	p.Email = "mutated@example.com"

	got, _ := store.FindByID(ctx, p.ID)
	if got.Email != "bob@example.com" {
		t.Fatalf("store must not alias caller values, got %+v", got)
	}
}

func TestMemoryStoreDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Create(ctx, &Profile{ID: "u-1", Email: "alice@example.com", HashedPassword: "a"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	err := store.Create(ctx, &Profile{ID: "u-1", Email: "bob@example.com", HashedPassword: "b"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	// 既存レコードと索引は変わらない
	kept, _ := store.FindByID(ctx, "u-1")
	if kept == nil || kept.Email != "alice@example.com" || kept.HashedPassword != "a" {
		t.Fatalf("existing profile was modified: %+v", kept)
	}
	if other, _ := store.FindByEmail(ctx, "bob@example.com"); other != nil {
		t.Fatalf("rejected profile must not be indexed: %+v", other)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 profile, got %d", store.Len())
	}
}
