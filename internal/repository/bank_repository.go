package repository

import (
	"errors"

	"gorm.io/gorm"

	"examdesk-backend/internal/db"
	"examdesk-backend/internal/model"
)

// eligibleCond matches questions with a resolvable correct answer. Questions
// failing it never enter an attempt's question set or its total.
const eligibleCond = "correct_option_id IS NOT NULL OR correct_answer_text <> ''"

type BankRepository interface {
	CreateBank(bank *model.QuestionBank) error
	CreateQuestion(question *model.Question) error
	GetBankByID(id string) (*model.QuestionBank, error)
	GetBankTx(tx *gorm.DB, id string) (*model.QuestionBank, error)
	EligibleQuestions(bankID string) ([]model.Question, error)
	CountEligibleTx(tx *gorm.DB, bankID string) (int64, error)
	CountEligible(bankID string) (int64, error)
	GetQuestionByID(id string) (*model.Question, error)
	GetQuestionsByIDs(ids []string) ([]model.Question, error)
	GetOptionByID(id string) (*model.QuestionOption, error)
}

type bankRepository struct{}

func NewBankRepository() BankRepository {
	return &bankRepository{}
}

func (r *bankRepository) CreateBank(bank *model.QuestionBank) error {
	return db.GetDB().Create(bank).Error
}

func (r *bankRepository) CreateQuestion(question *model.Question) error {
	return db.GetDB().Create(question).Error
}

func (r *bankRepository) GetBankByID(id string) (*model.QuestionBank, error) {
	return r.GetBankTx(db.GetDB(), id)
}

func (r *bankRepository) GetBankTx(tx *gorm.DB, id string) (*model.QuestionBank, error) {
	var bank model.QuestionBank
	err := tx.Where("id = ?", id).First(&bank).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bank, nil
}

func (r *bankRepository) EligibleQuestions(bankID string) ([]model.Question, error) {
	var questions []model.Question
	err := db.GetDB().
		Preload("Options").
		Where("bank_id = ?", bankID).
		Where(eligibleCond).
		Order("created_at asc").
		Find(&questions).Error
	return questions, err
}

func (r *bankRepository) CountEligibleTx(tx *gorm.DB, bankID string) (int64, error) {
	var count int64
	err := tx.Model(&model.Question{}).
		Where("bank_id = ?", bankID).
		Where(eligibleCond).
		Count(&count).Error
	return count, err
}

func (r *bankRepository) CountEligible(bankID string) (int64, error) {
	return r.CountEligibleTx(db.GetDB(), bankID)
}

func (r *bankRepository) GetQuestionByID(id string) (*model.Question, error) {
	var question model.Question
	err := db.GetDB().Preload("Options").Where("id = ?", id).First(&question).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *bankRepository) GetQuestionsByIDs(ids []string) ([]model.Question, error) {
	var questions []model.Question
	if len(ids) == 0 {
		return questions, nil
	}
	err := db.GetDB().Preload("Options").Where("id IN ?", ids).Find(&questions).Error
	return questions, err
}

func (r *bankRepository) GetOptionByID(id string) (*model.QuestionOption, error) {
	var option model.QuestionOption
	err := db.GetDB().Where("id = ?", id).First(&option).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &option, nil
}
