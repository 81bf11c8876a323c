package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"examdesk-backend/internal/db"
	"examdesk-backend/internal/model"
)

type TokenRepository interface {
	Create(token *model.ExamToken) error
	FindByToken(tx *gorm.DB, token string) (*model.ExamToken, error)
	Claim(tx *gorm.DB, tokenID string, now time.Time) (bool, error)
	Bind(tx *gorm.DB, tokenID, attemptID string) error
	Revoke(bankID string, userID uint, token string, now time.Time) (int64, error)
	Delete(bankID string, userID uint, token string) (int64, error)
}

type tokenRepository struct{}

func NewTokenRepository() TokenRepository {
	return &tokenRepository{}
}

func (r *tokenRepository) Create(token *model.ExamToken) error {
	return db.GetDB().Create(token).Error
}

func (r *tokenRepository) FindByToken(tx *gorm.DB, token string) (*model.ExamToken, error) {
	var row model.ExamToken
	err := tx.Where("token = ?", token).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Claim marks the token used only while it is still unused, unbound and
// unexpired. Zero affected rows means a concurrent redemption won the race;
// the caller re-reads the token to decide between idempotent replay and
// TokenAlreadyUsed.
func (r *tokenRepository) Claim(tx *gorm.DB, tokenID string, now time.Time) (bool, error) {
	res := tx.Model(&model.ExamToken{}).
		Where("id = ? AND used_at IS NULL AND attempt_id IS NULL AND expires_at > ?", tokenID, now).
		Update("used_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *tokenRepository) Bind(tx *gorm.DB, tokenID, attemptID string) error {
	return tx.Model(&model.ExamToken{}).
		Where("id = ?", tokenID).
		Update("attempt_id", attemptID).Error
}

func (r *tokenRepository) Revoke(bankID string, userID uint, token string, now time.Time) (int64, error) {
	res := db.GetDB().Model(&model.ExamToken{}).
		Where("bank_id = ? AND user_id = ? AND token = ? AND used_at IS NULL", bankID, userID, token).
		Update("used_at", now)
	return res.RowsAffected, res.Error
}

func (r *tokenRepository) Delete(bankID string, userID uint, token string) (int64, error) {
	res := db.GetDB().
		Where("bank_id = ? AND user_id = ? AND token = ? AND used_at IS NULL", bankID, userID, token).
		Delete(&model.ExamToken{})
	return res.RowsAffected, res.Error
}
