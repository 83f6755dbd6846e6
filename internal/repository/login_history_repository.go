package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/thinkmirai/auth-gateway/internal/domain"
	"github.com/thinkmirai/auth-gateway/internal/observability"

	"gorm.io/gorm"
)

type LoginHistoryRepository interface {
	Append(entry *domain.LoginHistory) error
	ListByAccountID(accountID string, limit int) ([]domain.LoginHistory, error)
}

type GormLoginHistoryRepository struct{ db *gorm.DB }

func NewLoginHistoryRepository(db *gorm.DB) LoginHistoryRepository {
	return &GormLoginHistoryRepository{db: db}
}

func (r *GormLoginHistoryRepository) Append(entry *domain.LoginHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := r.db.Create(entry).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "login_history", "append", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "login_history", "append", "success")
	return nil
}

func (r *GormLoginHistoryRepository) ListByAccountID(accountID string, limit int) ([]domain.LoginHistory, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []domain.LoginHistory
	err := r.db.Where("account_id = ?", accountID).
		Order("login_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "login_history", "list_by_account_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "login_history", "list_by_account_id", "success")
	return entries, nil
}
