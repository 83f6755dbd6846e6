package service

import (
	"context"
	"fmt"
	"time"

	"github.com/thinkmirai/auth-gateway/internal/domain"
	"github.com/thinkmirai/auth-gateway/internal/observability"
	"github.com/thinkmirai/auth-gateway/internal/repository"
)

// AttemptTracker records failed logins and locks accounts that accumulate
// too many. Failure records are keyed by (identity, source address) so the
// forensic trail shows which addresses attacked, but the lockout decision
// aggregates across addresses: rotating IPs does not bypass the threshold.
type AttemptTracker struct {
	attempts    repository.AttemptRepository
	accounts    repository.AccountRepository
	maxFailures int
	lockoutFor  time.Duration
	now         func() time.Time
}

func NewAttemptTracker(attempts repository.AttemptRepository, accounts repository.AccountRepository, maxFailures int, lockoutFor time.Duration) *AttemptTracker {
	return &AttemptTracker{
		attempts:    attempts,
		accounts:    accounts,
		maxFailures: maxFailures,
		lockoutFor:  lockoutFor,
		now:         time.Now,
	}
}

func (t *AttemptTracker) WithClock(now func() time.Time) *AttemptTracker {
	t.now = now
	return t
}

// RecordFailure upserts the failure record and, when the identity-wide
// total reaches the threshold, sets the account's lockout expiry. The
// account may be nil for identities that never resolved to an account;
// their records still accumulate for forensics.
func (t *AttemptTracker) RecordFailure(ctx context.Context, identity, ipAddress, device, reason string, account *domain.Account) error {
	var accountID *string
	if account != nil {
		accountID = &account.ID
	}
	total, err := t.attempts.RecordFailure(repository.FailureInput{
		Identity:  identity,
		IPAddress: ipAddress,
		AccountID: accountID,
		Device:    device,
		Reason:    reason,
	})
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	if account == nil || total < int64(t.maxFailures) {
		return nil
	}
	until := t.now().UTC().Add(t.lockoutFor)
	if err := t.accounts.SetLockout(account.ID, until); err != nil {
		return fmt.Errorf("set lockout: %w", err)
	}
	observability.RecordLockout(ctx, reason)
	observability.Audit(ctx, "account.locked",
		"account_id", account.ID,
		"failed_attempts", total,
		"locked_until", until,
	)
	return nil
}

// Reset clears every failure record for the identity. Called once right
// after external verification succeeds and before any session exists.
func (t *AttemptTracker) Reset(ctx context.Context, identity string) error {
	cleared, err := t.attempts.DeleteByIdentity(identity)
	if err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	if cleared > 0 {
		observability.Audit(ctx, "attempts.cleared", "identity", identity, "records", cleared)
	}
	return nil
}

// IsLocked reports whether the account's lockout expiry is still in the
// future. Expiry alone unlocks; there is no explicit unlock step.
func (t *AttemptTracker) IsLocked(account *domain.Account) bool {
	if account == nil || account.LockedUntil == nil {
		return false
	}
	return t.now().Before(*account.LockedUntil)
}
