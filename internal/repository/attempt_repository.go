package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"examdesk-backend/internal/db"
	"examdesk-backend/internal/db/query"
	"examdesk-backend/internal/model"
)

type AttemptRepository interface {
	Create(tx *gorm.DB, attempt *model.Attempt) error
	GetByID(id string) (*model.Attempt, error)
	GetByIDTx(tx *gorm.DB, id string) (*model.Attempt, error)
	UpsertAnswer(answer *model.AttemptAnswer) error
	GetAnswer(attemptID, questionID string) (*model.AttemptAnswer, error)
	Answers(attemptID string) ([]model.AttemptAnswer, error)
	CountAnswers(attemptID string) (int64, error)
	CountCorrect(attemptID string) (int64, error)
	Finish(attemptID string, finishedAt time.Time, score, total int) error
	UserAttempts(userID uint, filter query.AttemptFilter) ([]model.Attempt, error)
}

type attemptRepository struct{}

func NewAttemptRepository() AttemptRepository {
	return &attemptRepository{}
}

func (r *attemptRepository) Create(tx *gorm.DB, attempt *model.Attempt) error {
	return tx.Create(attempt).Error
}

func (r *attemptRepository) GetByID(id string) (*model.Attempt, error) {
	return r.GetByIDTx(db.GetDB(), id)
}

func (r *attemptRepository) GetByIDTx(tx *gorm.DB, id string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := tx.Where("id = ?", id).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// UpsertAnswer overwrites any prior answer for the same (attempt, question)
// pair; no history of earlier selections is kept.
func (r *attemptRepository) UpsertAnswer(answer *model.AttemptAnswer) error {
	return db.GetDB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selected_option_id", "is_correct", "updated_at"}),
	}).Create(answer).Error
}

func (r *attemptRepository) GetAnswer(attemptID, questionID string) (*model.AttemptAnswer, error) {
	var answer model.AttemptAnswer
	err := db.GetDB().
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *attemptRepository) Answers(attemptID string) ([]model.AttemptAnswer, error) {
	var answers []model.AttemptAnswer
	err := db.GetDB().
		Where("attempt_id = ?", attemptID).
		Order("created_at asc").
		Find(&answers).Error
	return answers, err
}

func (r *attemptRepository) CountAnswers(attemptID string) (int64, error) {
	var count int64
	err := db.GetDB().Model(&model.AttemptAnswer{}).
		Where("attempt_id = ?", attemptID).
		Count(&count).Error
	return count, err
}

func (r *attemptRepository) CountCorrect(attemptID string) (int64, error) {
	var count int64
	err := db.GetDB().Model(&model.AttemptAnswer{}).
		Where("attempt_id = ? AND is_correct = ?", attemptID, true).
		Count(&count).Error
	return count, err
}

func (r *attemptRepository) Finish(attemptID string, finishedAt time.Time, score, total int) error {
	return db.GetDB().Model(&model.Attempt{}).
		Where("id = ? AND status = ?", attemptID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":      model.AttemptFinished,
			"finished_at": finishedAt,
			"score":       score,
			"total":       total,
		}).Error
}

func (r *attemptRepository) UserAttempts(userID uint, filter query.AttemptFilter) ([]model.Attempt, error) {
	qb := query.NewQueryBuilder().
		From("attempts").
		Where("user_id = ?", userID).
		Apply(filter.Predicate()).
		OrderBy("started_at desc")

	sql, args := qb.Build()

	var attempts []model.Attempt
	err := db.GetDB().Raw(sql, args...).Scan(&attempts).Error
	return attempts, err
}
