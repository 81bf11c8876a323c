package repository

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"examdesk-backend/internal/db"
	"examdesk-backend/internal/model"
)

type UserRepository interface {
	CreateUser(user *model.User) error
	GetUserByID(id uint) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
	GetUserByPublicID(publicID string) (*model.User, error)
	GetUserTx(tx *gorm.DB, id uint) (*model.User, error)
	DebitBalance(tx *gorm.DB, userID uint, amount decimal.Decimal) (bool, error)
	CreditBalance(tx *gorm.DB, userID uint, amount decimal.Decimal) error
	BalanceTx(tx *gorm.DB, userID uint) (decimal.Decimal, error)
}

type userRepository struct{}

func NewUserRepository() UserRepository {
	return &userRepository{}
}

func (r *userRepository) CreateUser(user *model.User) error {
	return db.GetDB().Create(user).Error
}

func (r *userRepository) GetUserByID(id uint) (*model.User, error) {
	return r.GetUserTx(db.GetDB(), id)
}

func (r *userRepository) GetUserByEmail(email string) (*model.User, error) {
	var user model.User
	err := db.GetDB().Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserByPublicID(publicID string) (*model.User, error) {
	var user model.User
	err := db.GetDB().Where("public_id = ?", publicID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserTx(tx *gorm.DB, id uint) (*model.User, error) {
	var user model.User
	err := tx.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DebitBalance decrements the balance only while it still covers the amount.
// The WHERE clause is the compare-and-swap: an affected-row count of zero
// means another writer spent the balance first, never a partial debit.
func (r *userRepository) DebitBalance(tx *gorm.DB, userID uint, amount decimal.Decimal) (bool, error) {
	res := tx.Model(&model.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) CreditBalance(tx *gorm.DB, userID uint, amount decimal.Decimal) error {
	res := tx.Model(&model.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// BalanceTx re-reads the balance inside the caller's transaction, giving the
// authoritative post-update value for ledger bookkeeping.
func (r *userRepository) BalanceTx(tx *gorm.DB, userID uint) (decimal.Decimal, error) {
	var user model.User
	if err := tx.Select("balance").Where("id = ?", userID).First(&user).Error; err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}
