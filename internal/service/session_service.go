package service

import (
	"context"
	"time"

	"github.com/thinkmirai/auth-gateway/internal/domain"
	"github.com/thinkmirai/auth-gateway/internal/observability"
	"github.com/thinkmirai/auth-gateway/internal/repository"
	"github.com/thinkmirai/auth-gateway/internal/security"
)

type SessionView struct {
	ID           string    `json:"id"`
	Device       string    `json:"device"`
	IPAddress    string    `json:"ip_address"`
	LoginAt      time.Time `json:"login_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	IsCurrent    bool      `json:"is_current"`
}

// SessionService serves the device-management surface: listing active
// logins and revoking individual ones.
type SessionService struct {
	accounts repository.AccountRepository
	sessions repository.SessionRepository
	history  repository.LoginHistoryRepository
	now      func() time.Time
}

func NewSessionService(accounts repository.AccountRepository, sessions repository.SessionRepository, history repository.LoginHistoryRepository) *SessionService {
	return &SessionService{
		accounts: accounts,
		sessions: sessions,
		history:  history,
		now:      time.Now,
	}
}

func (s *SessionService) List(ctx context.Context, claims *security.Claims) ([]SessionView, error) {
	account, err := s.accounts.FindByExternalUID(claims.Subject)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListActiveByAccountID(account.ID)
	if err != nil {
		return nil, err
	}
	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, SessionView{
			ID:           session.ID,
			Device:       session.Device,
			IPAddress:    session.IPAddress,
			LoginAt:      session.LoginAt,
			LastActiveAt: session.LastActiveAt,
			IsCurrent:    session.ID == claims.SessionID,
		})
	}
	return views, nil
}

// Revoke deactivates one of the caller's sessions. Revoking an already
// inactive session reports already_revoked rather than failing.
func (s *SessionService) Revoke(ctx context.Context, claims *security.Claims, sessionID string) (string, error) {
	account, err := s.accounts.FindByExternalUID(claims.Subject)
	if err != nil {
		return "", err
	}
	changed, err := s.sessions.Deactivate(account.ID, sessionID, s.now().UTC())
	if err != nil {
		return "", err
	}
	if !changed {
		return "already_revoked", nil
	}
	observability.Audit(ctx, "session.revoked", "account_id", account.ID, "session_id", sessionID)
	return "revoked", nil
}

func (s *SessionService) History(ctx context.Context, claims *security.Claims, limit int) ([]domain.LoginHistory, error) {
	account, err := s.accounts.FindByExternalUID(claims.Subject)
	if err != nil {
		return nil, err
	}
	return s.history.ListByAccountID(account.ID, limit)
}
