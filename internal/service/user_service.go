package service

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"examdesk-backend/internal/apperr"
	"examdesk-backend/internal/db"
	"examdesk-backend/internal/db/query"
	"examdesk-backend/internal/model"
	"examdesk-backend/internal/repository"
	"examdesk-backend/utilities"
)

type BalanceHistory struct {
	Entries []model.BalanceTransaction `json:"entries"`
	Total   int64                      `json:"total"`
	Page    int                        `json:"page"`
	Limit   int                        `json:"limit"`
}

type UserService interface {
	GetUser(userID uint) (*model.User, error)
	GetBalance(userID uint) (decimal.Decimal, error)
	AdminTopUp(publicID string, amount decimal.Decimal, adminID uint) (*model.User, error)
	BalanceHistory(userID uint, filter query.LedgerFilter, page, limit int) (*BalanceHistory, error)
}

type userService struct {
	userRepo   repository.UserRepository
	ledgerRepo repository.LedgerRepository
	bus        *utilities.EventBus
}

func NewUserService(userRepo repository.UserRepository, ledgerRepo repository.LedgerRepository,
	bus *utilities.EventBus) UserService {
	return &userService{userRepo: userRepo, ledgerRepo: ledgerRepo, bus: bus}
}

func (s *userService) GetUser(userID uint) (*model.User, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	return user, nil
}

func (s *userService) GetBalance(userID uint) (decimal.Decimal, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

// AdminTopUp credits a user addressed by public id and appends the matching
// ledger entry in the same transaction.
func (s *userService) AdminTopUp(publicID string, amount decimal.Decimal, adminID uint) (*model.User, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.KindInvalidInput, "amount must be positive")
	}

	user, err := s.userRepo.GetUserByPublicID(publicID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}

	err = db.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.CreditBalance(tx, user.ID, amount); err != nil {
			return err
		}
		after, err := s.userRepo.BalanceTx(tx, user.ID)
		if err != nil {
			return err
		}
		entry := &model.BalanceTransaction{
			UserID:        user.ID,
			Amount:        amount,
			Type:          model.TxAdminTopup,
			BalanceBefore: after.Sub(amount),
			BalanceAfter:  after,
			AdminID:       &adminID,
		}
		if err := s.ledgerRepo.Append(tx, entry); err != nil {
			return err
		}
		user.Balance = after
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(utilities.EventBalanceCredited, user)
	}
	return user, nil
}

func (s *userService) BalanceHistory(userID uint, filter query.LedgerFilter, page, limit int) (*BalanceHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	entries, total, err := s.ledgerRepo.History(userID, filter, page, limit)
	if err != nil {
		return nil, err
	}
	return &BalanceHistory{Entries: entries, Total: total, Page: page, Limit: limit}, nil
}
