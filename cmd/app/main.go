package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"examdesk-backend/cmd/app/internal/controller"
	"examdesk-backend/internal/config"
	"examdesk-backend/internal/db"
	"examdesk-backend/internal/model"
	"examdesk-backend/internal/repository"
	"examdesk-backend/internal/service"
	"examdesk-backend/pkg/logging"
	"examdesk-backend/pkg/middleware"
	"examdesk-backend/utilities"
)

func main() {
	printStartUpBanner()

	seed := flag.Bool("seed", false, "load demo banks and users, then exit")
	flag.Parse()

	// Secrets and overrides come from .env when present.
	_ = godotenv.Load()

	// Load XML configuration from file.
	cfg, err := config.LoadConfig("config.xml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logging.Setup("logs")

	// Initialize DB using the loaded config.
	db.InitDBFromConfig(cfg)
	// Run migrations.
	if err := db.GetDB().AutoMigrate(
		&model.User{},
		&model.QuestionBank{},
		&model.Question{},
		&model.QuestionOption{},
		&model.ExamToken{},
		&model.Attempt{},
		&model.AttemptAnswer{},
		&model.BalanceTransaction{},
	); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	if *seed {
		runSeed()
		return
	}

	// Create repositories.
	userRepo := repository.NewUserRepository()
	bankRepo := repository.NewBankRepository()
	tokenRepo := repository.NewTokenRepository()
	attemptRepo := repository.NewAttemptRepository()
	ledgerRepo := repository.NewLedgerRepository()

	// Create services.
	bus := utilities.GlobalEventBus
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo, ledgerRepo, bus)
	tokenService := service.NewTokenService(tokenRepo, bankRepo, userRepo, cfg.Exam.TokenTTLMinutes)
	attemptService := service.NewAttemptService(tokenRepo, userRepo, bankRepo, attemptRepo, ledgerRepo, bus)
	reviewService := service.NewReviewService(attemptRepo, bankRepo)

	registerEventLogging(bus)

	// Initialize Gin router.
	r := gin.Default()

	// CORS configuration.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RequestDump {
		r.Use(middleware.RequestDumpMiddleware())
	}

	tokenLimiter := utilities.NewRateLimiter(cfg.Exam.TokenIssuePerSec, cfg.Exam.TokenIssueBurst)
	controller.RegisterRoutes(r, authService, userService, tokenService, attemptService, reviewService, tokenLimiter)

	// Start server on the host and port specified in the XML config.
	addr := fmt.Sprintf("%s:%d", cfg.Context.Host, cfg.Context.Port)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func registerEventLogging(bus *utilities.EventBus) {
	bus.Subscribe(utilities.EventAttemptFinished, func(data interface{}) {
		if res, ok := data.(*service.FinishResult); ok {
			logging.Info("attempt %s finished with score %d/%d", res.AttemptID, res.Score, res.Total)
		}
	})
	bus.Subscribe(utilities.EventBalanceDebited, func(data interface{}) {
		if attempt, ok := data.(*model.Attempt); ok {
			logging.Info("balance debited for attempt %s (user %d, bank %s)", attempt.ID, attempt.UserID, attempt.BankID)
		}
	})
	bus.Subscribe(utilities.EventBalanceCredited, func(data interface{}) {
		if user, ok := data.(*model.User); ok {
			logging.Info("balance credited for user %d, new balance %s", user.ID, user.Balance.StringFixed(2))
		}
	})
}

func printStartUpBanner() {
	myFigure := figure.NewFigure("EXAMDESK", "", true)
	myFigure.Print()

	fmt.Println("======================================================")
	fmt.Printf("EXAMDESK API (v%s)\n\n", "1.0.0")
}
