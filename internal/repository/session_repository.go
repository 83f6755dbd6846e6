package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thinkmirai/auth-gateway/internal/domain"
	"github.com/thinkmirai/auth-gateway/internal/observability"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	Create(accountID, device, ipAddress string, at time.Time) (*domain.Session, error)
	FindActive(accountID, sessionID string) (*domain.Session, error)
	ListActiveByAccountID(accountID string) ([]domain.Session, error)
	Deactivate(accountID, sessionID string, at time.Time) (bool, error)
	DeactivateAll(accountID string, at time.Time) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(accountID, device, ipAddress string, at time.Time) (*domain.Session, error) {
	s := &domain.Session{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Device:       device,
		IPAddress:    ipAddress,
		LoginAt:      at,
		LastActiveAt: at,
		Active:       true,
	}
	if err := r.db.Create(s).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "create", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "create", "success")
	return s, nil
}

func (r *GormSessionRepository) FindActive(accountID, sessionID string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.Where("account_id = ? AND id = ? AND active = ?", accountID, sessionID, true).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "session", "find_active", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "session", "find_active", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "find_active", "success")
	return &s, nil
}

func (r *GormSessionRepository) ListActiveByAccountID(accountID string) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.Where("account_id = ? AND active = ?", accountID, true).
		Order("login_at DESC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "list_active_by_account_id", "error")
		return sessions, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "list_active_by_account_id", "success")
	return sessions, nil
}

// Deactivate flips one session to inactive. The active guard in the WHERE
// clause makes the transition monotonic and the call idempotent: a second
// deactivation reports changed=false.
func (r *GormSessionRepository) Deactivate(accountID, sessionID string, at time.Time) (bool, error) {
	res := r.db.Model(&domain.Session{}).
		Where("account_id = ? AND id = ? AND active = ?", accountID, sessionID, true).
		Updates(map[string]any{"active": false, "last_active_at": at})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "deactivate", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "deactivate", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormSessionRepository) DeactivateAll(accountID string, at time.Time) (int64, error) {
	res := r.db.Model(&domain.Session{}).
		Where("account_id = ? AND active = ?", accountID, true).
		Updates(map[string]any{"active": false, "last_active_at": at})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "deactivate_all", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "deactivate_all", "success")
	return res.RowsAffected, nil
}
