package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/thinkmirai/auth-gateway/internal/domain"
)

func newTrackedAccount(t *testing.T, accounts *fakeAccountRepo, email string) *domain.Account {
	t.Helper()
	account := &domain.Account{
		ID:          uuid.NewString(),
		ExternalUID: uuid.NewString(),
		Email:       email,
	}
	if err := accounts.Create(account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func TestTrackerLocksAtThreshold(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
	accounts := newFakeAccountRepo()
	tracker := NewAttemptTracker(newFakeAttemptRepo(), accounts, 3, 15*time.Minute).WithClock(clock.Now)
	account := newTrackedAccount(t, accounts, "user@example.com")

	for i := 0; i < 2; i++ {
		if err := tracker.RecordFailure(ctx, "user@example.com", "203.0.113.1", "cli", "invalid_credential", account); err != nil {
			t.Fatalf("record failure: %v", err)
		}
		fresh, _ := accounts.FindByID(account.ID)
		if tracker.IsLocked(fresh) {
			t.Fatalf("locked after %d failures, threshold is 3", i+1)
		}
	}

	if err := tracker.RecordFailure(ctx, "user@example.com", "203.0.113.1", "cli", "invalid_credential", account); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	fresh, _ := accounts.FindByID(account.ID)
	if !tracker.IsLocked(fresh) {
		t.Fatal("account must lock once the threshold is reached")
	}
}

func TestTrackerAggregatesAcrossAddresses(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
	accounts := newFakeAccountRepo()
	tracker := NewAttemptTracker(newFakeAttemptRepo(), accounts, 3, 15*time.Minute).WithClock(clock.Now)
	account := newTrackedAccount(t, accounts, "user@example.com")

	// Rotating source addresses must not reset the budget.
	for _, addr := range []string{"203.0.113.1", "203.0.113.2", "198.51.100.9"} {
		if err := tracker.RecordFailure(ctx, "user@example.com", addr, "cli", "invalid_credential", account); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	fresh, _ := accounts.FindByID(account.ID)
	if !tracker.IsLocked(fresh) {
		t.Fatal("failures from distinct addresses must count toward the same lockout")
	}
}

func TestTrackerLockExpiresOnItsOwn(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
	accounts := newFakeAccountRepo()
	tracker := NewAttemptTracker(newFakeAttemptRepo(), accounts, 1, 15*time.Minute).WithClock(clock.Now)
	account := newTrackedAccount(t, accounts, "user@example.com")

	if err := tracker.RecordFailure(ctx, "user@example.com", "203.0.113.1", "cli", "invalid_credential", account); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	fresh, _ := accounts.FindByID(account.ID)
	if !tracker.IsLocked(fresh) {
		t.Fatal("expected lock")
	}

	clock.Advance(14 * time.Minute)
	if !tracker.IsLocked(fresh) {
		t.Fatal("lock expired early")
	}
	clock.Advance(2 * time.Minute)
	if tracker.IsLocked(fresh) {
		t.Fatal("lock must expire once the window passes")
	}
}

func TestTrackerResetClearsBudget(t *testing.T) {
	ctx := context.Background()
	attempts := newFakeAttemptRepo()
	accounts := newFakeAccountRepo()
	tracker := NewAttemptTracker(attempts, accounts, 5, 15*time.Minute)
	account := newTrackedAccount(t, accounts, "user@example.com")

	// Four failures, then a reset: the next failure starts from one again.
	for i := 0; i < 4; i++ {
		if err := tracker.RecordFailure(ctx, "user@example.com", "203.0.113.1", "cli", "invalid_credential", account); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	if err := tracker.Reset(ctx, "user@example.com"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	count, _ := attempts.CountByIdentity("user@example.com")
	if count != 0 {
		t.Fatalf("count after reset = %d, want 0", count)
	}

	if err := tracker.RecordFailure(ctx, "user@example.com", "203.0.113.1", "cli", "invalid_credential", account); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	fresh, _ := accounts.FindByID(account.ID)
	if tracker.IsLocked(fresh) {
		t.Fatal("a single post-reset failure must not lock")
	}
}

func TestTrackerUnresolvedIdentityNeverLocks(t *testing.T) {
	ctx := context.Background()
	attempts := newFakeAttemptRepo()
	tracker := NewAttemptTracker(attempts, newFakeAccountRepo(), 2, 15*time.Minute)

	// No account resolves: records accumulate for forensics but there is
	// nothing to lock.
	for i := 0; i < 5; i++ {
		if err := tracker.RecordFailure(ctx, "ghost@example.com", "203.0.113.1", "cli", "invalid_credential", nil); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	count, _ := attempts.CountByIdentity("ghost@example.com")
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}
	if tracker.IsLocked(nil) {
		t.Fatal("nil account can never be locked")
	}
}
