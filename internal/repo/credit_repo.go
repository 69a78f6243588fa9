package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/internal/domain"
)

// CreateCreditTransaction inserts a ledger row, assigning ID and CreatedAt
// when empty. A reused Reference yields ErrDuplicate.
func CreateCreditTransaction(ctx context.Context, db *gorm.DB, tx *domain.CreditTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(tx).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetCreditTransactionByReference returns the ledger row for reference, or ErrNotFound.
func GetCreditTransactionByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.CreditTransaction, error) {
	var out domain.CreditTransaction
	if err := db.WithContext(ctx).Where("reference = ?", reference).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// CountCreditTransactions returns how many ledger rows a user has.
func CountCreditTransactions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.CreditTransaction{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListCreditTransactionsPage returns a user's ledger rows, newest first.
func ListCreditTransactionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.CreditTransaction, error) {
	var out []domain.CreditTransaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListOpenHolds returns processing holds that were never settled, oldest first.
func ListOpenHolds(ctx context.Context, db *gorm.DB) ([]domain.CreditTransaction, error) {
	var out []domain.CreditTransaction
	err := db.WithContext(ctx).
		Where("hold_open = ?", true).
		Order("created_at").
		Find(&out).Error
	return out, err
}

// CloseHold marks an open hold settled. It reports false when the hold was
// already closed.
func CloseHold(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.CreditTransaction{}).
		Where("id = ? AND hold_open = ?", id, true).
		Update("hold_open", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
