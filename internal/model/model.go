package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Attempt lifecycle states. FINISHED is terminal.
const (
	AttemptInProgress = "IN_PROGRESS"
	AttemptFinished   = "FINISHED"
)

// Balance transaction types. Direction is encoded here, never in the sign
// of Amount.
const (
	TxAttemptDebit = "ATTEMPT_DEBIT"
	TxAdminTopup   = "ADMIN_TOPUP"
)

type User struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	PublicID  string          `json:"public_id" gorm:"type:uuid;uniqueIndex"`
	Email     string          `json:"email" gorm:"uniqueIndex"`
	Password  string          `json:"-"` // bcrypt hash, never serialized
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      string          `json:"role" gorm:"default:'user'"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:numeric(12,2);default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type QuestionBank struct {
	ID         string          `json:"id" gorm:"type:uuid;primaryKey"`
	Title      string          `json:"title" gorm:"not null"`
	Year       int             `json:"year"`
	Price      decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	University string          `json:"university"`
	Subject    string          `json:"subject"`
	Topic      string          `json:"topic"`
	Questions  []Question      `json:"questions,omitempty" gorm:"foreignKey:BankID"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type Question struct {
	ID                string           `json:"id" gorm:"type:uuid;primaryKey"`
	BankID            string           `json:"bank_id" gorm:"type:uuid;not null;index"`
	Text              string           `json:"text" gorm:"not null"`
	ImageURL          string           `json:"image_url"`
	CorrectOptionID   *string          `json:"correct_option_id,omitempty" gorm:"type:uuid"`
	CorrectAnswerText string           `json:"correct_answer_text,omitempty"`
	Options           []QuestionOption `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type QuestionOption struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	QuestionID string    `json:"question_id" gorm:"type:uuid;not null;index"`
	Text       string    `json:"text" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExamToken is a one-time credential for exactly one attempt redemption,
// scoped to a (bank, user) pair. A token with non-null UsedAt or past
// ExpiresAt cannot be redeemed.
type ExamToken struct {
	ID        string     `json:"id" gorm:"type:uuid;primaryKey"`
	Token     string     `json:"token" gorm:"uniqueIndex;not null"`
	BankID    string     `json:"bank_id" gorm:"type:uuid;not null;index"`
	UserID    uint       `json:"user_id" gorm:"not null;index"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	AttemptID *string    `json:"attempt_id,omitempty" gorm:"type:uuid"`
	CreatedAt time.Time  `json:"created_at"`
}

type Attempt struct {
	ID         string     `json:"id" gorm:"type:uuid;primaryKey"`
	BankID     string     `json:"bank_id" gorm:"type:uuid;not null;index"`
	UserID     uint       `json:"user_id" gorm:"not null;index"`
	Status     string     `json:"status" gorm:"not null;default:'IN_PROGRESS'"`
	StartedAt  time.Time  `json:"started_at" gorm:"not null"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Score      int        `json:"score"`
	Total      int        `json:"total"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// AttemptAnswer stores the scoring decision made at answer time; finish
// aggregates over IsCorrect without recomputing against question data.
// Re-answering a question overwrites the row via the unique pair index.
type AttemptAnswer struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey"`
	AttemptID        string    `json:"attempt_id" gorm:"type:uuid;not null;uniqueIndex:idx_attempt_question,priority:1"`
	QuestionID       string    `json:"question_id" gorm:"type:uuid;not null;uniqueIndex:idx_attempt_question,priority:2"`
	SelectedOptionID string    `json:"selected_option_id" gorm:"type:uuid;not null"`
	IsCorrect        bool      `json:"is_correct"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BalanceTransaction is the append-only ledger of balance changes. Rows are
// never updated or deleted; Amount is always positive.
type BalanceTransaction struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	UserID        uint            `json:"user_id" gorm:"not null;index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Type          string          `json:"type" gorm:"not null"`
	BalanceBefore decimal.Decimal `json:"balance_before" gorm:"type:numeric(12,2);not null"`
	BalanceAfter  decimal.Decimal `json:"balance_after" gorm:"type:numeric(12,2);not null"`
	AttemptID     *string         `json:"attempt_id,omitempty" gorm:"type:uuid"`
	BankID        *string         `json:"bank_id,omitempty" gorm:"type:uuid"`
	AdminID       *uint           `json:"admin_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
