package service

import (
	"time"

	"examdesk-backend/internal/apperr"
	"examdesk-backend/internal/db/query"
	"examdesk-backend/internal/model"
	"examdesk-backend/internal/repository"
)

// BankView is the presentation slice of a bank used by projections.
type BankView struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Year       int    `json:"year"`
	Price      string `json:"price"`
	University string `json:"university"`
	Subject    string `json:"subject"`
	Topic      string `json:"topic"`
}

// AttemptStats breaks the answered set down. Wrong means answered and
// incorrect; unanswered is a separate figure.
type AttemptStats struct {
	Answered   int `json:"answered"`
	Correct    int `json:"correct"`
	Wrong      int `json:"wrong"`
	Unanswered int `json:"unanswered"`
}

type AttemptSummary struct {
	AttemptID  string       `json:"attempt_id"`
	Status     string       `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at"`
	Score      int          `json:"score"`
	Total      int          `json:"total"`
	Stats      AttemptStats `json:"stats"`
	Exam       *BankView    `json:"exam"`
}

// AnswerView pairs a stored answer with its question for presentation.
type AnswerView struct {
	ID               string       `json:"id"`
	QuestionID       string       `json:"question_id"`
	SelectedOptionID string       `json:"selected_option_id"`
	IsCorrect        bool         `json:"is_correct"`
	CreatedAt        time.Time    `json:"created_at"`
	QuestionText     string       `json:"question_text"`
	ImageURL         string       `json:"image_url,omitempty"`
	Options          []OptionView `json:"options"`
	SelectedText     string       `json:"selected_text"`
}

// ReviewItem resolves the correct option for display. Resolution mirrors the
// scoring rule: by id first, then the normalized-text fallback.
type ReviewItem struct {
	AnswerID          string       `json:"answer_id"`
	CreatedAt         time.Time    `json:"created_at"`
	IsCorrect         bool         `json:"is_correct"`
	QuestionID        string       `json:"question_id"`
	QuestionText      string       `json:"question_text"`
	ImageURL          string       `json:"image_url,omitempty"`
	Options           []OptionView `json:"options"`
	CorrectOptionID   *string      `json:"correct_option_id"`
	CorrectOptionText string       `json:"correct_option_text,omitempty"`
	SelectedOptionID  string       `json:"selected_option_id"`
	SelectedText      string       `json:"selected_text"`
}

type AttemptReview struct {
	Attempt *model.Attempt `json:"attempt"`
	Exam    *BankView      `json:"exam"`
	Stats   AttemptStats   `json:"stats"`
	Items   []ReviewItem   `json:"items"`
}

type AttemptHistoryEntry struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Score      int        `json:"score"`
	Total      int        `json:"total"`
	Bank       *BankView  `json:"bank"`
}

type ReviewService interface {
	Summary(attemptID string) (*AttemptSummary, error)
	AttemptAnswers(attemptID string) ([]AnswerView, error)
	Review(attemptID string, userID uint) (*AttemptReview, error)
	UserAttempts(userID uint, status string) ([]AttemptHistoryEntry, error)
}

type reviewService struct {
	attemptRepo repository.AttemptRepository
	bankRepo    repository.BankRepository
}

func NewReviewService(attemptRepo repository.AttemptRepository, bankRepo repository.BankRepository) ReviewService {
	return &reviewService{attemptRepo: attemptRepo, bankRepo: bankRepo}
}

func bankView(bank *model.QuestionBank) *BankView {
	if bank == nil {
		return nil
	}
	return &BankView{
		ID:         bank.ID,
		Title:      bank.Title,
		Year:       bank.Year,
		Price:      bank.Price.StringFixed(2),
		University: bank.University,
		Subject:    bank.Subject,
		Topic:      bank.Topic,
	}
}

func (s *reviewService) Summary(attemptID string) (*AttemptSummary, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, apperr.New(apperr.KindNotFound, "attempt not found")
	}

	bank, err := s.bankRepo.GetBankByID(attempt.BankID)
	if err != nil {
		return nil, err
	}

	eligible, err := s.bankRepo.CountEligible(attempt.BankID)
	if err != nil {
		return nil, err
	}

	answers, err := s.attemptRepo.Answers(attemptID)
	if err != nil {
		return nil, err
	}
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}

	total := int(eligible)
	return &AttemptSummary{
		AttemptID:  attempt.ID,
		Status:     attempt.Status,
		StartedAt:  attempt.StartedAt,
		FinishedAt: attempt.FinishedAt,
		Score:      correct,
		Total:      total,
		Stats: AttemptStats{
			Answered:   len(answers),
			Correct:    correct,
			Wrong:      len(answers) - correct,
			Unanswered: total - len(answers),
		},
		Exam: bankView(bank),
	}, nil
}

func (s *reviewService) AttemptAnswers(attemptID string) ([]AnswerView, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, apperr.New(apperr.KindNotFound, "attempt not found")
	}

	answers, err := s.attemptRepo.Answers(attemptID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionsFor(answers)
	if err != nil {
		return nil, err
	}

	views := make([]AnswerView, 0, len(answers))
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			continue
		}
		view := AnswerView{
			ID:               a.ID,
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.SelectedOptionID,
			IsCorrect:        a.IsCorrect,
			CreatedAt:        a.CreatedAt,
			QuestionText:     q.Text,
			ImageURL:         q.ImageURL,
			Options:          optionViews(q.Options),
		}
		for _, o := range q.Options {
			if o.ID == a.SelectedOptionID {
				view.SelectedText = o.Text
				break
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *reviewService) Review(attemptID string, userID uint) (*AttemptReview, error) {
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

	bank, err := s.bankRepo.GetBankByID(attempt.BankID)
	if err != nil {
		return nil, err
	}

	answers, err := s.attemptRepo.Answers(attemptID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionsFor(answers)
	if err != nil {
		return nil, err
	}

	eligible, err := s.bankRepo.CountEligible(attempt.BankID)
	if err != nil {
		return nil, err
	}

	correct := 0
	items := make([]ReviewItem, 0, len(answers))
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			continue
		}
		if a.IsCorrect {
			correct++
		}

		item := ReviewItem{
			AnswerID:         a.ID,
			CreatedAt:        a.CreatedAt,
			IsCorrect:        a.IsCorrect,
			QuestionID:       q.ID,
			QuestionText:     q.Text,
			ImageURL:         q.ImageURL,
			Options:          optionViews(q.Options),
			SelectedOptionID: a.SelectedOptionID,
		}
		for _, o := range q.Options {
			if o.ID == a.SelectedOptionID {
				item.SelectedText = o.Text
				break
			}
		}

		correctOption := resolveCorrectOption(&q)
		if correctOption != nil {
			item.CorrectOptionID = &correctOption.ID
			item.CorrectOptionText = correctOption.Text
		} else {
			item.CorrectOptionID = q.CorrectOptionID
			item.CorrectOptionText = q.CorrectAnswerText
		}
		items = append(items, item)
	}

	return &AttemptReview{
		Attempt: attempt,
		Exam:    bankView(bank),
		Stats: AttemptStats{
			Answered:   len(answers),
			Correct:    correct,
			Wrong:      len(answers) - correct,
			Unanswered: int(eligible) - len(answers),
		},
		Items: items,
	}, nil
}

func (s *reviewService) UserAttempts(userID uint, status string) ([]AttemptHistoryEntry, error) {
	switch status {
	case "", model.AttemptInProgress, model.AttemptFinished:
	default:
		return nil, apperr.New(apperr.KindInvalidInput, "invalid status filter")
	}

	attempts, err := s.attemptRepo.UserAttempts(userID, query.AttemptFilter{Status: status})
	if err != nil {
		return nil, err
	}

	banks := make(map[string]*BankView)
	entries := make([]AttemptHistoryEntry, 0, len(attempts))
	for _, a := range attempts {
		view, ok := banks[a.BankID]
		if !ok {
			bank, err := s.bankRepo.GetBankByID(a.BankID)
			if err != nil {
				return nil, err
			}
			view = bankView(bank)
			banks[a.BankID] = view
		}
		entries = append(entries, AttemptHistoryEntry{
			ID:         a.ID,
			Status:     a.Status,
			StartedAt:  a.StartedAt,
			FinishedAt: a.FinishedAt,
			Score:      a.Score,
			Total:      a.Total,
			Bank:       view,
		})
	}
	return entries, nil
}

func (s *reviewService) questionsFor(answers []model.AttemptAnswer) (map[string]model.Question, error) {
	ids := make([]string, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}
	rows, err := s.bankRepo.GetQuestionsByIDs(ids)
	if err != nil {
		return nil, err
	}
	questions := make(map[string]model.Question, len(rows))
	for _, q := range rows {
		questions[q.ID] = q
	}
	return questions, nil
}

func optionViews(options []model.QuestionOption) []OptionView {
	views := make([]OptionView, len(options))
	for i, o := range options {
		views[i] = OptionView{ID: o.ID, Text: o.Text}
	}
	return views
}

// resolveCorrectOption finds the option to display as correct: by stored id
// first, then by normalized-text match against correctAnswerText, the same
// rule answer scoring applies.
func resolveCorrectOption(q *model.Question) *model.QuestionOption {
	if q.CorrectOptionID != nil {
		for i := range q.Options {
			if q.Options[i].ID == *q.CorrectOptionID {
				return &q.Options[i]
			}
		}
	}
	if q.CorrectAnswerText != "" {
		target := normalizeAnswer(q.CorrectAnswerText)
		if target != "" {
			for i := range q.Options {
				if normalizeAnswer(q.Options[i].Text) == target {
					return &q.Options[i]
				}
			}
		}
	}
	return nil
}
