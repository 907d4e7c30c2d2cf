package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lifedex/lifedex/internal/core/domain"
)

func TestLockStoreAcquireRelease(t *testing.T) {
	ctx := context.Background()
	store := NewLockStore()

	if err := store.Acquire(ctx, "inbox/a.md"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	locked, _ := store.IsLocked(ctx, "inbox/a.md")
	if !locked {
		t.Error("expected path to be locked")
	}

	if err := store.Acquire(ctx, "inbox/a.md"); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}

	if err := store.Release(ctx, "inbox/a.md"); err != nil {
		t.Fatal(err)
	}
	locked, _ = store.IsLocked(ctx, "inbox/a.md")
	if locked {
		t.Error("expected path to be unlocked after release")
	}

	// Releasing an absent lock is not an error.
	if err := store.Release(ctx, "inbox/a.md"); err != nil {
		t.Errorf("release of absent lock: %v", err)
	}
}

func TestLockStoreAtMostOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewLockStore()

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Acquire(ctx, "inbox/contested.md"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one concurrent acquire to win, got %d", count)
	}
}

func TestLockStoreCleanupStale(t *testing.T) {
	ctx := context.Background()
	store := NewLockStore()
	if err := store.Acquire(ctx, "inbox/a.md"); err != nil {
		t.Fatal(err)
	}

	n, err := store.CleanupStale(ctx, time.Now().Add(-time.Minute))
	if err != nil || n != 0 {
		t.Fatalf("expected no stale locks, got %d (%v)", n, err)
	}

	n, err = store.CleanupStale(ctx, time.Now().Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("expected one stale lock, got %d (%v)", n, err)
	}
	locked, _ := store.IsLocked(ctx, "inbox/a.md")
	if locked {
		t.Error("expected lock to be cleared by cleanup")
	}
}
