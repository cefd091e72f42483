package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bankledger/internal/repository"
)

func newAttemptRepo(t *testing.T) repository.AttemptRepository {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "attempts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewAttemptRepository(db)
	if err := repo.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return repo
}

func TestAttemptGetMissingKey(t *testing.T) {
	repo := newAttemptRepo(t)

	state, err := repo.Get(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if state != nil {
		t.Fatalf("missing key should yield nil state, got %+v", state)
	}
}

func TestAttemptIncrementCounts(t *testing.T) {
	ctx := context.Background()
	repo := newAttemptRepo(t)

	for want := 1; want <= 3; want++ {
		count, err := repo.Increment(ctx, "alice@example.com")
		if err != nil {
			t.Fatal(err)
		}
		if count != want {
			t.Fatalf("increment %d returned %d", want, count)
		}
	}

	// Counters are per key.
	count, err := repo.Increment(ctx, "bob@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("fresh key count = %d, want 1", count)
	}
}

func TestAttemptResetClearsFailuresAndLockout(t *testing.T) {
	ctx := context.Background()
	repo := newAttemptRepo(t)

	if _, err := repo.Increment(ctx, "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	until := time.Now().Add(30 * time.Minute)
	if err := repo.SetLockout(ctx, "alice@example.com", until); err != nil {
		t.Fatal(err)
	}

	state, err := repo.Get(ctx, "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if state == nil || state.LockedUntil == nil {
		t.Fatalf("lockout not persisted: %+v", state)
	}
	if got := state.LockedUntil.UTC(); got.Unix() != until.UTC().Unix() {
		t.Fatalf("locked_until = %v, want %v", got, until.UTC())
	}

	if err := repo.Reset(ctx, "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	state, err = repo.Get(ctx, "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if state.Failures != 0 || state.LockedUntil != nil {
		t.Fatalf("reset left state behind: %+v", state)
	}
}

func TestAttemptSetLockoutOnFreshKey(t *testing.T) {
	ctx := context.Background()
	repo := newAttemptRepo(t)

	until := time.Now().Add(time.Hour)
	if err := repo.SetLockout(ctx, "ghost@example.com", until); err != nil {
		t.Fatal(err)
	}

	state, err := repo.Get(ctx, "ghost@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if state == nil || state.LockedUntil == nil {
		t.Fatalf("lockout on fresh key not persisted: %+v", state)
	}

	if err := repo.ClearLockout(ctx, "ghost@example.com"); err != nil {
		t.Fatal(err)
	}
	state, err = repo.Get(ctx, "ghost@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if state.LockedUntil != nil {
		t.Fatalf("lockout not cleared: %+v", state)
	}
}
