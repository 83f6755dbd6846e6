package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thinkmirai/auth-gateway/internal/domain"
	"github.com/thinkmirai/auth-gateway/internal/identity"
	"github.com/thinkmirai/auth-gateway/internal/repository"
)

// fakeClock is a hand-adjustable wall clock shared by everything under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{t: start} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *fakeAccountRepo) FindByID(id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, repository.ErrAccountNotFound
}

func (r *fakeAccountRepo) FindByExternalUID(uid string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ExternalUID == uid {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (r *fakeAccountRepo) FindByEmail(email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (r *fakeAccountRepo) Create(account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) Update(account *domain.Account) error {
	return r.Create(account)
}

func (r *fakeAccountRepo) SetLockout(accountID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	u := until
	a.LockedUntil = &u
	return nil
}

type attemptKey struct{ identity, addr string }

type fakeAttemptRepo struct {
	mu      sync.Mutex
	records map[attemptKey]*domain.FailedLogin
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{records: make(map[attemptKey]*domain.FailedLogin)}
}

func (r *fakeAttemptRepo) RecordFailure(in repository.FailureInput) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attemptKey{in.Identity, in.IPAddress}
	rec, ok := r.records[key]
	if !ok {
		rec = &domain.FailedLogin{
			ID:        uuid.NewString(),
			Identity:  in.Identity,
			IPAddress: in.IPAddress,
			AccountID: in.AccountID,
			Device:    in.Device,
		}
		r.records[key] = rec
	}
	rec.AttemptCount++
	rec.Reason = in.Reason
	rec.LastAttemptAt = time.Now().UTC()
	var total int64
	for _, other := range r.records {
		if other.Identity == in.Identity {
			total += int64(other.AttemptCount)
		}
	}
	return total, nil
}

func (r *fakeAttemptRepo) CountByIdentity(identity string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, rec := range r.records {
		if rec.Identity == identity {
			total += int64(rec.AttemptCount)
		}
	}
	return total, nil
}

func (r *fakeAttemptRepo) ListByIdentity(identity string) ([]domain.FailedLogin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.FailedLogin
	for _, rec := range r.records {
		if rec.Identity == identity {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) DeleteByIdentity(identity string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cleared int64
	for key, rec := range r.records {
		if rec.Identity == identity {
			delete(r.records, key)
			cleared++
		}
	}
	return cleared, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *fakeSessionRepo) Create(accountID, device, ipAddress string, at time.Time) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &domain.Session{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Device:       device,
		IPAddress:    ipAddress,
		LoginAt:      at,
		LastActiveAt: at,
		Active:       true,
	}
	r.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) FindActive(accountID, sessionID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.AccountID != accountID || !s.Active {
		return nil, repository.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) ListActiveByAccountID(accountID string) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.AccountID == accountID && s.Active {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Deactivate(accountID, sessionID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.AccountID != accountID || !s.Active {
		return false, nil
	}
	s.Active = false
	s.LastActiveAt = at
	return true, nil
}

func (r *fakeSessionRepo) DeactivateAll(accountID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var revoked int64
	for _, s := range r.sessions {
		if s.AccountID == accountID && s.Active {
			s.Active = false
			s.LastActiveAt = at
			revoked++
		}
	}
	return revoked, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.LoginHistory
}

func newFakeHistoryRepo() *fakeHistoryRepo { return &fakeHistoryRepo{} }

func (r *fakeHistoryRepo) Append(entry *domain.LoginHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	r.entries = append(r.entries, cp)
	return nil
}

func (r *fakeHistoryRepo) ListByAccountID(accountID string, limit int) ([]domain.LoginHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LoginHistory
	for _, e := range r.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// staticVerifier resolves provider tokens from a fixed table and counts
// calls, so tests can assert the provider was never consulted.
type staticVerifier struct {
	mu         sync.Mutex
	identities map[string]*identity.VerifiedIdentity
	errs       map[string]error
	calls      int
}

func newStaticVerifier() *staticVerifier {
	return &staticVerifier{
		identities: make(map[string]*identity.VerifiedIdentity),
		errs:       make(map[string]error),
	}
}

func (v *staticVerifier) VerifyCredential(_ context.Context, rawToken string) (*identity.VerifiedIdentity, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if err, ok := v.errs[rawToken]; ok {
		return nil, err
	}
	if id, ok := v.identities[rawToken]; ok {
		cp := *id
		return &cp, nil
	}
	return nil, identity.ErrNotFound
}

func (v *staticVerifier) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type staticProvisioner struct {
	err       error
	lastInput identity.NewAccount
}

func (p *staticProvisioner) Provision(_ context.Context, in identity.NewAccount) (string, error) {
	p.lastInput = in
	if p.err != nil {
		return "", p.err
	}
	return "ext-" + uuid.NewString(), nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	err   error
	sends []string
}

func (n *recordingNotifier) SendVerificationMessage(_ context.Context, email, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sends = append(n.sends, email)
	return nil
}
