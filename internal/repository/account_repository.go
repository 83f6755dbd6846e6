package repository

import (
	"context"
	"errors"
	"time"

	"github.com/thinkmirai/auth-gateway/internal/domain"
	"github.com/thinkmirai/auth-gateway/internal/observability"

	"gorm.io/gorm"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepository interface {
	FindByID(id string) (*domain.Account, error)
	FindByExternalUID(uid string) (*domain.Account, error)
	FindByEmail(email string) (*domain.Account, error)
	Create(account *domain.Account) error
	Update(account *domain.Account) error
	SetLockout(accountID string, until time.Time) error
}

type GormAccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &GormAccountRepository{db: db} }

func (r *GormAccountRepository) FindByID(id string) (*domain.Account, error) {
	return r.findOne("find_by_id", "id = ?", id)
}

func (r *GormAccountRepository) FindByExternalUID(uid string) (*domain.Account, error) {
	return r.findOne("find_by_external_uid", "external_uid = ?", uid)
}

func (r *GormAccountRepository) FindByEmail(email string) (*domain.Account, error) {
	return r.findOne("find_by_email", "email = ?", email)
}

func (r *GormAccountRepository) findOne(op, query string, arg any) (*domain.Account, error) {
	var a domain.Account
	err := r.db.Where(query, arg).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "account", op, "not_found")
			return nil, ErrAccountNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "account", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "account", op, "success")
	return &a, nil
}

func (r *GormAccountRepository) Create(account *domain.Account) error {
	err := r.db.Create(account).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "account", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "account", "create", "success")
	return nil
}

func (r *GormAccountRepository) Update(account *domain.Account) error {
	err := r.db.Save(account).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "account", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "account", "update", "success")
	return nil
}

func (r *GormAccountRepository) SetLockout(accountID string, until time.Time) error {
	res := r.db.Model(&domain.Account{}).
		Where("id = ?", accountID).
		Update("locked_until", until)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "account", "set_lockout", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "account", "set_lockout", "not_found")
		return ErrAccountNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "account", "set_lockout", "success")
	return nil
}
