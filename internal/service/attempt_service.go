package service

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"examdesk-backend/internal/apperr"
	"examdesk-backend/internal/db"
	"examdesk-backend/internal/model"
	"examdesk-backend/internal/repository"
	"examdesk-backend/utilities"
)

// RedeemResult is the outcome of a token redemption, fresh or replayed.
type RedeemResult struct {
	Attempt          *model.Attempt  `json:"attempt"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Replayed         bool            `json:"replayed"`
}

// OptionView is an option with its correct-answer fields stripped.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// AttemptQuestion is one presentable question of an in-progress attempt.
type AttemptQuestion struct {
	ID               string       `json:"id"`
	Text             string       `json:"text"`
	ImageURL         string       `json:"image_url,omitempty"`
	Options          []OptionView `json:"options"`
	Answered         bool         `json:"answered"`
	SelectedOptionID *string      `json:"selected_option_id"`
}

// FinishResult reports the frozen score. Wrong counts answered-and-incorrect
// only; unanswered questions are reported separately, never as wrong.
type FinishResult struct {
	AttemptID  string     `json:"attempt_id"`
	Status     string     `json:"status"`
	Score      int        `json:"score"`
	Total      int        `json:"total"`
	Correct    int        `json:"correct"`
	Wrong      int        `json:"wrong"`
	Answered   int        `json:"answered"`
	Unanswered int        `json:"unanswered"`
	FinishedAt *time.Time `json:"finished_at"`
}

type AttemptService interface {
	RedeemAndCreateAttempt(bankID string, userID uint, token string) (*RedeemResult, error)
	GetAttemptQuestions(attemptID string, userID uint) ([]AttemptQuestion, error)
	Answer(attemptID, questionID, selectedOptionID string) (*model.AttemptAnswer, error)
	Finish(attemptID string) (*FinishResult, error)
}

type attemptService struct {
	tokenRepo   repository.TokenRepository
	userRepo    repository.UserRepository
	bankRepo    repository.BankRepository
	attemptRepo repository.AttemptRepository
	ledgerRepo  repository.LedgerRepository
	bus         *utilities.EventBus
}

func NewAttemptService(tokenRepo repository.TokenRepository, userRepo repository.UserRepository,
	bankRepo repository.BankRepository, attemptRepo repository.AttemptRepository,
	ledgerRepo repository.LedgerRepository, bus *utilities.EventBus) AttemptService {
	return &attemptService{
		tokenRepo:   tokenRepo,
		userRepo:    userRepo,
		bankRepo:    bankRepo,
		attemptRepo: attemptRepo,
		ledgerRepo:  ledgerRepo,
		bus:         bus,
	}
}

// RedeemAndCreateAttempt exchanges a one-time token for an attempt. The whole
// sequence runs in a single transaction: the token claim and the balance
// debit are conditional updates whose affected-row count decides races, and
// any failure after the claim aborts the transaction, which restores the
// token unused. A token ends up bound if and only if the debit and the
// attempt creation both succeeded.
func (s *attemptService) RedeemAndCreateAttempt(bankID string, userID uint, tokenValue string) (*RedeemResult, error) {
	result := &RedeemResult{}

	err := db.GetDB().Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		row, err := s.tokenRepo.FindByToken(tx, tokenValue)
		if err != nil {
			return err
		}
		if row == nil {
			return apperr.New(apperr.KindInvalidToken, "token not found")
		}
		if row.BankID != bankID || row.UserID != userID {
			return apperr.New(apperr.KindTokenMismatch, "token does not match bank or user")
		}
		if row.ExpiresAt.Before(now) {
			return apperr.New(apperr.KindTokenExpired, "token expired")
		}

		// Replay guard: a bound token means an earlier redemption already
		// succeeded. Retries get the established attempt, not an error.
		if row.AttemptID != nil {
			return s.replay(tx, *row.AttemptID, userID, result)
		}

		claimed, err := s.tokenRepo.Claim(tx, row.ID, now)
		if err != nil {
			return err
		}
		if !claimed {
			// Lost the claim race. If the winner has bound the token by
			// now, hand back its attempt; otherwise the token is spent.
			fresh, err := s.tokenRepo.FindByToken(tx, tokenValue)
			if err != nil {
				return err
			}
			if fresh != nil && fresh.AttemptID != nil {
				return s.replay(tx, *fresh.AttemptID, userID, result)
			}
			return apperr.New(apperr.KindTokenAlreadyUsed, "token already used")
		}

		bank, err := s.bankRepo.GetBankTx(tx, bankID)
		if err != nil {
			return err
		}
		if bank == nil {
			return apperr.New(apperr.KindNotFound, "bank not found")
		}
		if bank.Price.IsNegative() {
			return apperr.New(apperr.KindInvalidPrice, "bank has an invalid price")
		}

		eligible, err := s.bankRepo.CountEligibleTx(tx, bankID)
		if err != nil {
			return err
		}
		if eligible == 0 {
			return apperr.New(apperr.KindNoEligibleQuestions, "bank has no exam-eligible questions")
		}

		user, err := s.userRepo.GetUserTx(tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apperr.New(apperr.KindNotFound, "user not found")
		}

		if bank.Price.IsPositive() {
			debited, err := s.userRepo.DebitBalance(tx, userID, bank.Price)
			if err != nil {
				return err
			}
			if !debited {
				return apperr.New(apperr.KindInsufficientBalance, "insufficient balance")
			}
		}

		// Re-read inside the transaction: the authoritative post-debit
		// balance, regardless of concurrent spends committed before ours.
		balanceAfter, err := s.userRepo.BalanceTx(tx, userID)
		if err != nil {
			return err
		}

		attempt := &model.Attempt{
			ID:        uuid.New().String(),
			BankID:    bankID,
			UserID:    userID,
			Status:    model.AttemptInProgress,
			StartedAt: now,
		}
		if err := s.attemptRepo.Create(tx, attempt); err != nil {
			return err
		}

		if bank.Price.IsPositive() {
			entry := &model.BalanceTransaction{
				UserID:        userID,
				Amount:        bank.Price,
				Type:          model.TxAttemptDebit,
				BalanceBefore: balanceAfter.Add(bank.Price),
				BalanceAfter:  balanceAfter,
				AttemptID:     &attempt.ID,
				BankID:        &bankID,
			}
			if err := s.ledgerRepo.Append(tx, entry); err != nil {
				return err
			}
		}

		if err := s.tokenRepo.Bind(tx, row.ID, attempt.ID); err != nil {
			return err
		}

		result.Attempt = attempt
		result.RemainingBalance = balanceAfter
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.bus != nil && !result.Replayed {
		s.bus.Publish(utilities.EventBalanceDebited, result.Attempt)
	}
	return result, nil
}

// replay fills result from an already-bound attempt with the user's current
// balance. Side-effect free: retried redemptions must not debit twice.
func (s *attemptService) replay(tx *gorm.DB, attemptID string, userID uint, result *RedeemResult) error {
	attempt, err := s.attemptRepo.GetByIDTx(tx, attemptID)
	if err != nil {
		return err
	}
	if attempt == nil {
		return apperr.New(apperr.KindTokenAlreadyUsed, "token already used")
	}
	balance, err := s.userRepo.BalanceTx(tx, userID)
	if err != nil {
		return err
	}
	result.Attempt = attempt
	result.RemainingBalance = balance
	result.Replayed = true
	return nil
}

// GetAttemptQuestions returns the attempt's eligible questions with options
// freshly shuffled per call; no per-attempt ordering is persisted.
func (s *attemptService) GetAttemptQuestions(attemptID string, userID uint) ([]AttemptQuestion, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, apperr.New(apperr.KindNotFound, "attempt not found")
	}
	if attempt.UserID != userID {
		return nil, apperr.New(apperr.KindForbidden, "attempt does not belong to user")
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, apperr.New(apperr.KindInvalidState, "attempt is not in progress")
	}

	questions, err := s.bankRepo.EligibleQuestions(attempt.BankID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, apperr.New(apperr.KindNoEligibleQuestions, "no questions found for this exam")
	}

	answers, err := s.attemptRepo.Answers(attemptID)
	if err != nil {
		return nil, err
	}
	answered := make(map[string]model.AttemptAnswer, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = a
	}

	out := make([]AttemptQuestion, 0, len(questions))
	for _, q := range questions {
		options := make([]OptionView, len(q.Options))
		for i, o := range q.Options {
			options[i] = OptionView{ID: o.ID, Text: o.Text}
		}
		rand.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})

		aq := AttemptQuestion{
			ID:       q.ID,
			Text:     q.Text,
			ImageURL: q.ImageURL,
			Options:  options,
		}
		if a, ok := answered[q.ID]; ok {
			selected := a.SelectedOptionID
			aq.Answered = true
			aq.SelectedOptionID = &selected
		}
		out = append(out, aq)
	}
	return out, nil
}

// Answer scores at write time and upserts on the (attempt, question) pair.
// The stored IsCorrect flag is what finish aggregates later.
func (s *attemptService) Answer(attemptID, questionID, selectedOptionID string) (*model.AttemptAnswer, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, apperr.New(apperr.KindNotFound, "attempt not found")
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, apperr.New(apperr.KindInvalidState, "attempt is not in progress")
	}

	question, err := s.bankRepo.GetQuestionByID(questionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, apperr.New(apperr.KindNotFound, "question not found")
	}
	if question.BankID != attempt.BankID {
		return nil, apperr.New(apperr.KindNotFound, "question does not belong to this exam")
	}
	if question.CorrectOptionID == nil && question.CorrectAnswerText == "" {
		return nil, apperr.New(apperr.KindNotFound, "question is not exam-eligible")
	}

	option, err := s.bankRepo.GetOptionByID(selectedOptionID)
	if err != nil {
		return nil, err
	}
	if option == nil {
		return nil, apperr.New(apperr.KindNotFound, "option not found")
	}
	if option.QuestionID != questionID {
		return nil, apperr.New(apperr.KindInvalidOption, "option does not belong to this question")
	}

	isCorrect := false
	if question.CorrectOptionID != nil {
		isCorrect = *question.CorrectOptionID == selectedOptionID
	} else {
		isCorrect = normalizeAnswer(option.Text) == normalizeAnswer(question.CorrectAnswerText)
	}

	answer := &model.AttemptAnswer{
		ID:               uuid.New().String(),
		AttemptID:        attemptID,
		QuestionID:       questionID,
		SelectedOptionID: selectedOptionID,
		IsCorrect:        isCorrect,
	}
	if err := s.attemptRepo.UpsertAnswer(answer); err != nil {
		return nil, err
	}
	// Read back: on overwrite the original row id and created_at survive.
	return s.attemptRepo.GetAnswer(attemptID, questionID)
}

// Finish freezes the score. A second call returns the frozen record without
// recomputation; stored answers are aggregated, question data is not re-read
// for scoring.
func (s *attemptService) Finish(attemptID string) (*FinishResult, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, apperr.New(apperr.KindNotFound, "attempt not found")
	}

	answered, err := s.attemptRepo.CountAnswers(attemptID)
	if err != nil {
		return nil, err
	}
	correct, err := s.attemptRepo.CountCorrect(attemptID)
	if err != nil {
		return nil, err
	}

	if attempt.Status == model.AttemptFinished {
		return &FinishResult{
			AttemptID:  attempt.ID,
			Status:     attempt.Status,
			Score:      attempt.Score,
			Total:      attempt.Total,
			Correct:    attempt.Score,
			Wrong:      int(answered) - attempt.Score,
			Answered:   int(answered),
			Unanswered: attempt.Total - int(answered),
			FinishedAt: attempt.FinishedAt,
		}, nil
	}

	eligible, err := s.bankRepo.CountEligible(attempt.BankID)
	if err != nil {
		return nil, err
	}

	total := int(eligible)
	score := int(correct)
	finishedAt := time.Now()

	if err := s.attemptRepo.Finish(attemptID, finishedAt, score, total); err != nil {
		return nil, err
	}

	result := &FinishResult{
		AttemptID:  attempt.ID,
		Status:     model.AttemptFinished,
		Score:      score,
		Total:      total,
		Correct:    score,
		Wrong:      int(answered) - score,
		Answered:   int(answered),
		Unanswered: total - int(answered),
		FinishedAt: &finishedAt,
	}

	if s.bus != nil {
		s.bus.Publish(utilities.EventAttemptFinished, result)
	}
	return result, nil
}
