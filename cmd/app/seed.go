package main

import (
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"examdesk-backend/internal/db"
	"examdesk-backend/internal/model"
)

// runSeed loads a demo bank with a handful of questions plus two users, so
// the redemption flow can be exercised end to end on a fresh database.
func runSeed() {
	conn := db.GetDB()
	if conn == nil {
		log.Fatal("database connection failed")
	}

	password, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash seed password: %v", err)
	}

	users := []model.User{
		{
			PublicID:  uuid.New().String(),
			Email:     "student@examdesk.local",
			Password:  string(password),
			FirstName: "Sample",
			LastName:  "Student",
			Balance:   decimal.RequireFromString("25.00"),
		},
		{
			PublicID:  uuid.New().String(),
			Email:     "admin@examdesk.local",
			Password:  string(password),
			FirstName: "Sample",
			LastName:  "Admin",
			Role:      "admin",
		},
	}
	for i := range users {
		if err := conn.Create(&users[i]).Error; err != nil {
			log.Fatalf("failed to seed user %s: %v", users[i].Email, err)
		}
	}

	bank := model.QuestionBank{
		ID:         uuid.New().String(),
		Title:      "Anatomy Midterm 2019",
		Year:       2019,
		Price:      decimal.RequireFromString("5.00"),
		University: "Demo University",
		Subject:    "Anatomy",
		Topic:      "Musculoskeletal system",
	}
	if err := conn.Create(&bank).Error; err != nil {
		log.Fatalf("failed to seed bank: %v", err)
	}

	type seedQuestion struct {
		text    string
		options []string
		correct int
	}
	questions := []seedQuestion{
		{"How many bones does the adult human skeleton have?", []string{"206", "212", "198", "220"}, 0},
		{"Which muscle is the primary flexor of the elbow?", []string{"Triceps brachii", "Biceps brachii", "Deltoid", "Brachioradialis"}, 1},
		{"The patella is an example of which bone type?", []string{"Long", "Flat", "Sesamoid", "Irregular"}, 2},
	}

	for _, sq := range questions {
		q := model.Question{
			ID:     uuid.New().String(),
			BankID: bank.ID,
			Text:   sq.text,
		}
		if err := conn.Create(&q).Error; err != nil {
			log.Fatalf("failed to seed question: %v", err)
		}
		for i, text := range sq.options {
			opt := model.QuestionOption{
				ID:         uuid.New().String(),
				QuestionID: q.ID,
				Text:       text,
			}
			if err := conn.Create(&opt).Error; err != nil {
				log.Fatalf("failed to seed option: %v", err)
			}
			if i == sq.correct {
				if err := conn.Model(&model.Question{}).Where("id = ?", q.ID).
					Updates(map[string]interface{}{
						"correct_option_id":   opt.ID,
						"correct_answer_text": opt.Text,
					}).Error; err != nil {
					log.Fatalf("failed to mark correct option: %v", err)
				}
			}
		}
	}

	log.Printf("seeded bank %s with %d questions and %d users", bank.ID, len(questions), len(users))
}
