package repository

import (
	"errors"

	"gorm.io/gorm"

	"examdesk-backend/internal/db"
	"examdesk-backend/internal/db/query"
	"examdesk-backend/internal/model"
)

// LedgerRepository is append-only by construction: it exposes no update or
// delete operation. Corrections happen through compensating entries.
type LedgerRepository interface {
	Append(tx *gorm.DB, entry *model.BalanceTransaction) error
	History(userID uint, filter query.LedgerFilter, page, limit int) ([]model.BalanceTransaction, int64, error)
}

type ledgerRepository struct{}

func NewLedgerRepository() LedgerRepository {
	return &ledgerRepository{}
}

func (r *ledgerRepository) Append(tx *gorm.DB, entry *model.BalanceTransaction) error {
	if !entry.Amount.IsPositive() {
		return errors.New("ledger amount must be positive")
	}
	return tx.Create(entry).Error
}

func (r *ledgerRepository) History(userID uint, filter query.LedgerFilter, page, limit int) ([]model.BalanceTransaction, int64, error) {
	var total int64
	countQ := db.GetDB().Model(&model.BalanceTransaction{}).Where("user_id = ?", userID)
	if filter.Type != "" {
		countQ = countQ.Where("type = ?", filter.Type)
	}
	if !filter.Since.IsZero() {
		countQ = countQ.Where("created_at > ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		countQ = countQ.Where("created_at < ?", filter.Until)
	}
	if err := countQ.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	qb := query.NewQueryBuilder().
		From("balance_transactions").
		Where("user_id = ?", userID).
		Apply(filter.Predicate()).
		OrderBy("created_at desc, id desc").
		Limit(limit).
		Offset((page - 1) * limit)

	sql, args := qb.Build()

	var entries []model.BalanceTransaction
	err := db.GetDB().Raw(sql, args...).Scan(&entries).Error
	return entries, total, err
}
