package service

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examdesk-backend/internal/apperr"
	"examdesk-backend/internal/model"
)

func wrongOptionID(q *model.Question) string {
	for _, o := range q.Options {
		if q.CorrectOptionID == nil || o.ID != *q.CorrectOptionID {
			return o.ID
		}
	}
	return ""
}

func TestRedeemRoundTrip(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "10.00")
	bank := f.createBank(t, "5.00")
	q1 := f.addQuestion(t, bank.ID, 0, "A", "B", "C")
	q2 := f.addQuestion(t, bank.ID, 1, "A", "B", "C")
	token := f.issueToken(t, bank.ID, user.ID)

	res, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	require.NoError(t, err)
	require.NotNil(t, res.Attempt)
	assert.False(t, res.Replayed)
	assert.Equal(t, model.AttemptInProgress, res.Attempt.Status)
	assert.True(t, res.RemainingBalance.Equal(decimal.RequireFromString("5.00")),
		"got %s", res.RemainingBalance)
	assert.True(t, f.balanceOf(t, user.ID).Equal(decimal.RequireFromString("5.00")))

	questions, err := f.attemptSvc.GetAttemptQuestions(res.Attempt.ID, user.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 2)

	// q1 answered correctly, q2 answered wrong.
	a1, err := f.attemptSvc.Answer(res.Attempt.ID, q1.ID, *q1.CorrectOptionID)
	require.NoError(t, err)
	assert.True(t, a1.IsCorrect)

	a2, err := f.attemptSvc.Answer(res.Attempt.ID, q2.ID, wrongOptionID(q2))
	require.NoError(t, err)
	assert.False(t, a2.IsCorrect)

	fin, err := f.attemptSvc.Finish(res.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptFinished, fin.Status)
	assert.Equal(t, 1, fin.Score)
	assert.Equal(t, 2, fin.Total)
	assert.Equal(t, 1, fin.Wrong)
	assert.Equal(t, 0, fin.Unanswered)
	require.NotNil(t, fin.FinishedAt)

	// Finishing again must return the frozen record unchanged.
	fin2, err := f.attemptSvc.Finish(res.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, fin.Score, fin2.Score)
	assert.Equal(t, fin.Total, fin2.Total)
	assert.Equal(t, fin.FinishedAt.Unix(), fin2.FinishedAt.Unix())

	// Redeeming the spent token again replays the bound attempt and does
	// not debit twice.
	res2, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	require.NoError(t, err)
	assert.True(t, res2.Replayed)
	assert.Equal(t, res.Attempt.ID, res2.Attempt.ID)
	assert.True(t, f.balanceOf(t, user.ID).Equal(decimal.RequireFromString("5.00")))

	entries := f.ledgerEntries(t, user.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, model.TxAttemptDebit, entries[0].Type)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, entries[0].BalanceBefore.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, entries[0].BalanceAfter.Equal(decimal.RequireFromString("5.00")))
	require.NotNil(t, entries[0].AttemptID)
	assert.Equal(t, res.Attempt.ID, *entries[0].AttemptID)
}

func TestRedeemTokenValidation(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "10.00")
	other := f.createUser(t, "10.00")
	bank := f.createBank(t, "5.00")
	otherBank := f.createBank(t, "5.00")
	f.addQuestion(t, bank.ID, 0, "A", "B")

	_, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, "no-such-token")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidToken))

	token := f.issueToken(t, bank.ID, user.ID)

	_, err = f.attemptSvc.RedeemAndCreateAttempt(otherBank.ID, user.ID, token.Token)
	assert.True(t, apperr.IsKind(err, apperr.KindTokenMismatch))

	_, err = f.attemptSvc.RedeemAndCreateAttempt(bank.ID, other.ID, token.Token)
	assert.True(t, apperr.IsKind(err, apperr.KindTokenMismatch))

	require.NoError(t, f.conn.Model(&model.ExamToken{}).Where("id = ?", token.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)
	_, err = f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	assert.True(t, apperr.IsKind(err, apperr.KindTokenExpired))

	// A revoked token is spent without ever being bound to an attempt.
	revoked := f.issueToken(t, bank.ID, user.ID)
	n, err := f.tokenSvc.Revoke(bank.ID, user.ID, revoked.Token)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	_, err = f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, revoked.Token)
	assert.True(t, apperr.IsKind(err, apperr.KindTokenAlreadyUsed))

	// No debit happened anywhere along the way.
	assert.True(t, f.balanceOf(t, user.ID).Equal(decimal.RequireFromString("10.00")))
	assert.Empty(t, f.ledgerEntries(t, user.ID))
}

func TestRedeemInsufficientBalanceRollsBackClaim(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "2.00")
	bank := f.createBank(t, "5.00")
	f.addQuestion(t, bank.ID, 0, "A", "B")
	token := f.issueToken(t, bank.ID, user.ID)

	_, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientBalance))

	// The failed redemption must leave no trace: token unused and unbound,
	// no attempt, no ledger entry, balance untouched.
	var fresh model.ExamToken
	require.NoError(t, f.conn.Where("id = ?", token.ID).First(&fresh).Error)
	assert.Nil(t, fresh.UsedAt)
	assert.Nil(t, fresh.AttemptID)

	var attempts int64
	require.NoError(t, f.conn.Model(&model.Attempt{}).Count(&attempts).Error)
	assert.EqualValues(t, 0, attempts)
	assert.Empty(t, f.ledgerEntries(t, user.ID))
	assert.True(t, f.balanceOf(t, user.ID).Equal(decimal.RequireFromString("2.00")))

	// After a top-up the very same token redeems.
	admin := f.createUser(t, "0")
	_, err = f.userSvc.AdminTopUp(user.PublicID, decimal.RequireFromString("10.00"), admin.ID)
	require.NoError(t, err)

	res, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.True(t, res.RemainingBalance.Equal(decimal.RequireFromString("7.00")))
}

func TestRedeemNoEligibleQuestions(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "10.00")
	bank := f.createBank(t, "5.00")
	f.addQuestion(t, bank.ID, -1, "A", "B") // no correct answer set
	token := f.issueToken(t, bank.ID, user.ID)

	_, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	assert.True(t, apperr.IsKind(err, apperr.KindNoEligibleQuestions))

	// Transaction abort restores the token for a later, fixed-up bank.
	var fresh model.ExamToken
	require.NoError(t, f.conn.Where("id = ?", token.ID).First(&fresh).Error)
	assert.Nil(t, fresh.UsedAt)
	assert.True(t, f.balanceOf(t, user.ID).Equal(decimal.RequireFromString("10.00")))
}

func TestRedeemZeroPriceBankSkipsLedger(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "10.00")
	bank := f.createBank(t, "0.00")
	f.addQuestion(t, bank.ID, 0, "A", "B")
	token := f.issueToken(t, bank.ID, user.ID)

	res, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	require.NoError(t, err)
	assert.True(t, res.RemainingBalance.Equal(decimal.RequireFromString("10.00")))
	assert.Empty(t, f.ledgerEntries(t, user.ID))
}

func TestRedeemConcurrentSingleDebit(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "10.00")
	bank := f.createBank(t, "5.00")
	f.addQuestion(t, bank.ID, 0, "A", "B")
	token := f.issueToken(t, bank.ID, user.ID)

	const workers = 8
	results := make([]*RedeemResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
		}(i)
	}
	wg.Wait()

	freshWins := 0
	attemptIDs := make(map[string]bool)
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			// The only acceptable loss is the spent-token race.
			assert.True(t, apperr.IsKind(errs[i], apperr.KindTokenAlreadyUsed),
				"unexpected error: %v", errs[i])
			continue
		}
		attemptIDs[results[i].Attempt.ID] = true
		if !results[i].Replayed {
			freshWins++
		}
	}

	assert.Equal(t, 1, freshWins, "exactly one redemption may win the claim")
	assert.Len(t, attemptIDs, 1, "every success must surface the same attempt")
	assert.True(t, f.balanceOf(t, user.ID).Equal(decimal.RequireFromString("5.00")),
		"balance must be debited exactly once")
	assert.Len(t, f.ledgerEntries(t, user.ID), 1)
}

func TestAnswerScoringAndOverwrite(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "10.00")
	bank := f.createBank(t, "5.00")
	q := f.addQuestion(t, bank.ID, 0, "Alpha", "Beta", "Gamma")
	token := f.issueToken(t, bank.ID, user.ID)

	res, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	require.NoError(t, err)

	first, err := f.attemptSvc.Answer(res.Attempt.ID, q.ID, wrongOptionID(q))
	require.NoError(t, err)
	assert.False(t, first.IsCorrect)

	// Re-answering overwrites in place: same row id, updated verdict.
	second, err := f.attemptSvc.Answer(res.Attempt.ID, q.ID, *q.CorrectOptionID)
	require.NoError(t, err)
	assert.True(t, second.IsCorrect)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.conn.Model(&model.AttemptAnswer{}).
		Where("attempt_id = ?", res.Attempt.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAnswerTextFallbackScoring(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "10.00")
	bank := f.createBank(t, "5.00")
	// Correct answer recorded as text with messy spacing and case.
	q := f.addTextQuestion(t, bank.ID, "  Biceps   BRACHII ", "Triceps brachii", "Biceps brachii")
	token := f.issueToken(t, bank.ID, user.ID)

	res, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	require.NoError(t, err)

	ans, err := f.attemptSvc.Answer(res.Attempt.ID, q.ID, q.Options[1].ID)
	require.NoError(t, err)
	assert.True(t, ans.IsCorrect)

	ans, err = f.attemptSvc.Answer(res.Attempt.ID, q.ID, q.Options[0].ID)
	require.NoError(t, err)
	assert.False(t, ans.IsCorrect)
}

func TestAnswerGuards(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "10.00")
	bank := f.createBank(t, "5.00")
	q := f.addQuestion(t, bank.ID, 0, "A", "B")
	ineligible := f.addQuestion(t, bank.ID, -1, "A", "B")
	stray := f.addQuestion(t, f.createBank(t, "1.00").ID, 0, "A", "B")
	token := f.issueToken(t, bank.ID, user.ID)

	res, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	require.NoError(t, err)

	_, err = f.attemptSvc.Answer("missing", q.ID, q.Options[0].ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = f.attemptSvc.Answer(res.Attempt.ID, ineligible.ID, ineligible.Options[0].ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = f.attemptSvc.Answer(res.Attempt.ID, stray.ID, stray.Options[0].ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	// Option belonging to a different question.
	_, err = f.attemptSvc.Answer(res.Attempt.ID, q.ID, stray.Options[0].ID)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidOption))

	_, err = f.attemptSvc.Finish(res.Attempt.ID)
	require.NoError(t, err)

	_, err = f.attemptSvc.Answer(res.Attempt.ID, q.ID, q.Options[0].ID)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestGetAttemptQuestionsExcludesIneligible(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "10.00")
	other := f.createUser(t, "10.00")
	bank := f.createBank(t, "5.00")
	eligible := f.addQuestion(t, bank.ID, 0, "A", "B", "C")
	f.addQuestion(t, bank.ID, 1, "A", "B", "C")
	f.addQuestion(t, bank.ID, -1, "A", "B", "C")
	token := f.issueToken(t, bank.ID, user.ID)

	res, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	require.NoError(t, err)

	questions, err := f.attemptSvc.GetAttemptQuestions(res.Attempt.ID, user.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
	for _, q := range questions {
		assert.False(t, q.Answered)
		assert.Nil(t, q.SelectedOptionID)
		assert.Len(t, q.Options, 3)
	}

	_, err = f.attemptSvc.GetAttemptQuestions(res.Attempt.ID, other.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// Answered questions echo the selection back.
	_, err = f.attemptSvc.Answer(res.Attempt.ID, eligible.ID, *eligible.CorrectOptionID)
	require.NoError(t, err)
	questions, err = f.attemptSvc.GetAttemptQuestions(res.Attempt.ID, user.ID)
	require.NoError(t, err)
	answered := 0
	for _, q := range questions {
		if q.Answered {
			answered++
			require.NotNil(t, q.SelectedOptionID)
			assert.Equal(t, *eligible.CorrectOptionID, *q.SelectedOptionID)
		}
	}
	assert.Equal(t, 1, answered)

	_, err = f.attemptSvc.Finish(res.Attempt.ID)
	require.NoError(t, err)
	_, err = f.attemptSvc.GetAttemptQuestions(res.Attempt.ID, user.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestFinishUsesStoredVerdicts(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "10.00")
	bank := f.createBank(t, "5.00")
	q := f.addQuestion(t, bank.ID, 0, "A", "B")
	token := f.issueToken(t, bank.ID, user.ID)

	res, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	require.NoError(t, err)

	_, err = f.attemptSvc.Answer(res.Attempt.ID, q.ID, *q.CorrectOptionID)
	require.NoError(t, err)

	// Edit the answer key after the answer was scored. The stored verdict
	// must win at finish time.
	require.NoError(t, f.conn.Model(&model.Question{}).Where("id = ?", q.ID).
		Update("correct_option_id", q.Options[1].ID).Error)

	fin, err := f.attemptSvc.Finish(res.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fin.Score)
}

func TestFinishCountsUnansweredSeparately(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "10.00")
	bank := f.createBank(t, "5.00")
	q1 := f.addQuestion(t, bank.ID, 0, "A", "B")
	f.addQuestion(t, bank.ID, 0, "A", "B")
	f.addQuestion(t, bank.ID, 0, "A", "B")
	token := f.issueToken(t, bank.ID, user.ID)

	res, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
	require.NoError(t, err)

	_, err = f.attemptSvc.Answer(res.Attempt.ID, q1.ID, wrongOptionID(q1))
	require.NoError(t, err)

	fin, err := f.attemptSvc.Finish(res.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fin.Score)
	assert.Equal(t, 3, fin.Total)
	assert.Equal(t, 1, fin.Answered)
	assert.Equal(t, 1, fin.Wrong)
	assert.Equal(t, 2, fin.Unanswered)
}

func TestBalanceConservation(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "20.00")
	admin := f.createUser(t, "0")
	bank := f.createBank(t, "7.50")
	f.addQuestion(t, bank.ID, 0, "A", "B")

	for i := 0; i < 2; i++ {
		token := f.issueToken(t, bank.ID, user.ID)
		_, err := f.attemptSvc.RedeemAndCreateAttempt(bank.ID, user.ID, token.Token)
		require.NoError(t, err)
	}
	_, err := f.userSvc.AdminTopUp(user.PublicID, decimal.RequireFromString("3.25"), admin.ID)
	require.NoError(t, err)

	// initial + sum of signed ledger amounts == stored balance, and each
	// entry's before/after pair is internally consistent.
	sum := decimal.Zero
	for _, e := range f.ledgerEntries(t, user.ID) {
		switch e.Type {
		case model.TxAttemptDebit:
			sum = sum.Sub(e.Amount)
			assert.True(t, e.BalanceBefore.Sub(e.Amount).Equal(e.BalanceAfter))
		case model.TxAdminTopup:
			sum = sum.Add(e.Amount)
			assert.True(t, e.BalanceBefore.Add(e.Amount).Equal(e.BalanceAfter))
		default:
			t.Fatalf("unexpected ledger type %s", e.Type)
		}
	}
	want := decimal.RequireFromString("20.00").Add(sum)
	assert.True(t, f.balanceOf(t, user.ID).Equal(want),
		"balance %s, ledger implies %s", f.balanceOf(t, user.ID), want)
}
