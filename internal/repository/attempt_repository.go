package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/thinkmirai/auth-gateway/internal/domain"
	"github.com/thinkmirai/auth-gateway/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FailureInput struct {
	Identity  string
	IPAddress string
	AccountID *string
	Device    string
	Reason    string
}

type AttemptRepository interface {
	// RecordFailure upserts the (identity, address) record in a single
	// conflict-clause statement and returns the aggregate attempt count
	// across every address for the identity. Two concurrent failures must
	// both observe their own increment, so the increment is pushed into
	// the database rather than read-modify-written here.
	RecordFailure(in FailureInput) (int64, error)
	CountByIdentity(identity string) (int64, error)
	ListByIdentity(identity string) ([]domain.FailedLogin, error)
	DeleteByIdentity(identity string) (int64, error)
}

type GormAttemptRepository struct{ db *gorm.DB }

func NewAttemptRepository(db *gorm.DB) AttemptRepository { return &GormAttemptRepository{db: db} }

func (r *GormAttemptRepository) RecordFailure(in FailureInput) (int64, error) {
	var total int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		rec := domain.FailedLogin{
			ID:        uuid.NewString(),
			Identity:  in.Identity,
			IPAddress: in.IPAddress,
			AccountID: in.AccountID,
			Device:    in.Device,
			Reason:    in.Reason,
		}
		rec.AttemptCount = 1
		rec.LastAttemptAt = tx.NowFunc()
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity"}, {Name: "ip_address"}},
			DoUpdates: clause.Assignments(map[string]any{
				"attempt_count":   gorm.Expr("attempt_count + 1"),
				"last_attempt_at": rec.LastAttemptAt,
				"reason":          in.Reason,
				"device":          in.Device,
			}),
		}).Create(&rec).Error; err != nil {
			return err
		}
		return tx.Model(&domain.FailedLogin{}).
			Where("identity = ?", in.Identity).
			Select("COALESCE(SUM(attempt_count), 0)").
			Scan(&total).Error
	})
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "failed_login", "record_failure", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "failed_login", "record_failure", "success")
	return total, nil
}

func (r *GormAttemptRepository) CountByIdentity(identity string) (int64, error) {
	var total int64
	err := r.db.Model(&domain.FailedLogin{}).
		Where("identity = ?", identity).
		Select("COALESCE(SUM(attempt_count), 0)").
		Scan(&total).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "failed_login", "count_by_identity", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "failed_login", "count_by_identity", "success")
	return total, nil
}

func (r *GormAttemptRepository) ListByIdentity(identity string) ([]domain.FailedLogin, error) {
	var records []domain.FailedLogin
	err := r.db.Where("identity = ?", identity).
		Order("last_attempt_at DESC").
		Find(&records).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "failed_login", "list_by_identity", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "failed_login", "list_by_identity", "success")
	return records, nil
}

func (r *GormAttemptRepository) DeleteByIdentity(identity string) (int64, error) {
	res := r.db.Where("identity = ?", identity).Delete(&domain.FailedLogin{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "failed_login", "delete_by_identity", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "failed_login", "delete_by_identity", "success")
	return res.RowsAffected, nil
}
