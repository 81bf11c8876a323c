package service

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"examdesk-backend/internal/apperr"
	"examdesk-backend/internal/model"
	"examdesk-backend/internal/repository"
)

type TokenService interface {
	Issue(bankID string, userID uint, ttlMinutes int) (*model.ExamToken, error)
	Revoke(bankID string, userID uint, token string) (int64, error)
	Delete(bankID string, userID uint, token string) (int64, error)
}

type tokenService struct {
	tokenRepo  repository.TokenRepository
	bankRepo   repository.BankRepository
	userRepo   repository.UserRepository
	defaultTTL time.Duration
}

func NewTokenService(tokenRepo repository.TokenRepository, bankRepo repository.BankRepository,
	userRepo repository.UserRepository, defaultTTLMinutes int) TokenService {
	if defaultTTLMinutes <= 0 {
		defaultTTLMinutes = 10
	}
	return &tokenService{
		tokenRepo:  tokenRepo,
		bankRepo:   bankRepo,
		userRepo:   userRepo,
		defaultTTL: time.Duration(defaultTTLMinutes) * time.Minute,
	}
}

// genToken returns 32 bytes of entropy, hex encoded. Opaque by design: the
// value carries no structure a client could predict.
func genToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Issue always creates a fresh token; earlier unused tokens for the same
// (bank, user) pair stay live. Single-use is enforced per token at
// redemption, not per pair here.
func (s *tokenService) Issue(bankID string, userID uint, ttlMinutes int) (*model.ExamToken, error) {
	bank, err := s.bankRepo.GetBankByID(bankID)
	if err != nil {
		return nil, err
	}
	if bank == nil {
		return nil, apperr.New(apperr.KindNotFound, "bank not found")
	}

	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}

	value, err := genToken()
	if err != nil {
		return nil, err
	}

	ttl := s.defaultTTL
	if ttlMinutes > 0 {
		ttl = time.Duration(ttlMinutes) * time.Minute
	}

	token := &model.ExamToken{
		ID:        uuid.New().String(),
		Token:     value,
		BankID:    bankID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.tokenRepo.Create(token); err != nil {
		return nil, err
	}
	return token, nil
}

// Revoke returns 0 silently when the token is missing, already used or
// scoped elsewhere; callers learn nothing about tokens outside their scope.
func (s *tokenService) Revoke(bankID string, userID uint, token string) (int64, error) {
	return s.tokenRepo.Revoke(bankID, userID, token, time.Now())
}

func (s *tokenService) Delete(bankID string, userID uint, token string) (int64, error) {
	return s.tokenRepo.Delete(bankID, userID, token)
}
