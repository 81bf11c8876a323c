package service

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"examdesk-backend/internal/db"
	"examdesk-backend/internal/model"
	"examdesk-backend/internal/repository"
)

// fixture wires every service against a throwaway sqlite database. The DSN
// uses an immediate transaction lock plus a busy timeout so concurrent
// redemption tests serialize instead of failing with SQLITE_BUSY.
type fixture struct {
	conn     *gorm.DB
	users    repository.UserRepository
	banks    repository.BankRepository
	tokens   repository.TokenRepository
	attempts repository.AttemptRepository
	ledger   repository.LedgerRepository

	tokenSvc   TokenService
	attemptSvc AttemptService
	reviewSvc  ReviewService
	userSvc    UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "examdesk_test.db") + "?_busy_timeout=10000&_txlock=immediate"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&model.User{},
		&model.QuestionBank{},
		&model.Question{},
		&model.QuestionOption{},
		&model.ExamToken{},
		&model.Attempt{},
		&model.AttemptAnswer{},
		&model.BalanceTransaction{},
	))

	db.SetDB(conn)

	f := &fixture{
		conn:     conn,
		users:    repository.NewUserRepository(),
		banks:    repository.NewBankRepository(),
		tokens:   repository.NewTokenRepository(),
		attempts: repository.NewAttemptRepository(),
		ledger:   repository.NewLedgerRepository(),
	}
	f.tokenSvc = NewTokenService(f.tokens, f.banks, f.users, 10)
	f.attemptSvc = NewAttemptService(f.tokens, f.users, f.banks, f.attempts, f.ledger, nil)
	f.reviewSvc = NewReviewService(f.attempts, f.banks)
	f.userSvc = NewUserService(f.users, f.ledger, nil)
	return f
}

func (f *fixture) createUser(t *testing.T, balance string) *model.User {
	t.Helper()
	user := &model.User{
		PublicID: uuid.New().String(),
		Email:    uuid.New().String() + "@test.local",
		Password: "x",
		Balance:  decimal.RequireFromString(balance),
	}
	require.NoError(t, f.conn.Create(user).Error)
	return user
}

func (f *fixture) createBank(t *testing.T, price string) *model.QuestionBank {
	t.Helper()
	bank := &model.QuestionBank{
		ID:    uuid.New().String(),
		Title: "Test Bank",
		Year:  2024,
		Price: decimal.RequireFromString(price),
	}
	require.NoError(t, f.conn.Create(bank).Error)
	return bank
}

// addQuestion creates a question with the given option texts. correctIdx
// picks the correct option by id; a negative correctIdx leaves the question
// without any correct answer, making it ineligible.
func (f *fixture) addQuestion(t *testing.T, bankID string, correctIdx int, options ...string) *model.Question {
	t.Helper()
	q := &model.Question{
		ID:     uuid.New().String(),
		BankID: bankID,
		Text:   "Question " + uuid.New().String(),
	}
	require.NoError(t, f.conn.Create(q).Error)

	for i, text := range options {
		opt := &model.QuestionOption{
			ID:         uuid.New().String(),
			QuestionID: q.ID,
			Text:       text,
		}
		require.NoError(t, f.conn.Create(opt).Error)
		if i == correctIdx {
			require.NoError(t, f.conn.Model(&model.Question{}).Where("id = ?", q.ID).
				Update("correct_option_id", opt.ID).Error)
			q.CorrectOptionID = &opt.ID
		}
		q.Options = append(q.Options, *opt)
	}
	return q
}

// addTextQuestion creates a question scored by normalized text match only.
func (f *fixture) addTextQuestion(t *testing.T, bankID, correctText string, options ...string) *model.Question {
	t.Helper()
	q := &model.Question{
		ID:                uuid.New().String(),
		BankID:            bankID,
		Text:              "Text question " + uuid.New().String(),
		CorrectAnswerText: correctText,
	}
	require.NoError(t, f.conn.Create(q).Error)

	for _, text := range options {
		opt := &model.QuestionOption{
			ID:         uuid.New().String(),
			QuestionID: q.ID,
			Text:       text,
		}
		require.NoError(t, f.conn.Create(opt).Error)
		q.Options = append(q.Options, *opt)
	}
	return q
}

func (f *fixture) issueToken(t *testing.T, bankID string, userID uint) *model.ExamToken {
	t.Helper()
	token, err := f.tokenSvc.Issue(bankID, userID, 10)
	require.NoError(t, err)
	return token
}

func (f *fixture) balanceOf(t *testing.T, userID uint) decimal.Decimal {
	t.Helper()
	var user model.User
	require.NoError(t, f.conn.First(&user, userID).Error)
	return user.Balance
}

func (f *fixture) ledgerEntries(t *testing.T, userID uint) []model.BalanceTransaction {
	t.Helper()
	var entries []model.BalanceTransaction
	require.NoError(t, f.conn.Where("user_id = ?", userID).Order("id asc").Find(&entries).Error)
	return entries
}
