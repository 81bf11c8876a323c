package controller

import (
	"github.com/gin-gonic/gin"

	"examdesk-backend/internal/service"
	"examdesk-backend/utilities"
)

// RegisterRoutes registers all route groups and their endpoints.
func RegisterRoutes(r *gin.Engine,
	authService service.AuthService,
	userService service.UserService,
	tokenService service.TokenService,
	attemptService service.AttemptService,
	reviewService service.ReviewService,
	tokenLimiter *utilities.RateLimiter,
) {
	authCtrl := NewAuthController(authService)
	auth := r.Group("/auth")
	{
		auth.POST("/register", authCtrl.Register)
		auth.POST("/login", authCtrl.Login)
	}

	userCtrl := NewUserController(userService)
	admin := r.Group("/auth/admin", utilities.AuthMiddleware(), utilities.AdminOnly())
	{
		admin.POST("/topup", userCtrl.AdminTopUp)
	}

	me := r.Group("/me", utilities.AuthMiddleware())
	{
		me.GET("/balance-history", userCtrl.MyBalanceHistory)
	}

	tokenCtrl := NewTokenController(tokenService)
	attemptCtrl := NewAttemptController(attemptService)
	banks := r.Group("/banks")
	{
		banks.POST("/:bankId/exam-token", tokenLimiter.Middleware(), tokenCtrl.CreateExamToken)
		banks.POST("/:bankId/exam-token/revoke", tokenCtrl.RevokeExamToken)
		banks.POST("/:bankId/exam-token/delete", tokenCtrl.DeleteExamToken)
		banks.POST("/:bankId/attempts", attemptCtrl.CreateAttempt)
	}

	reviewCtrl := NewReviewController(reviewService)
	reportCtrl := NewReportController(reviewService)
	attempts := r.Group("/attempts")
	{
		attempts.GET("/:attemptId/questions", attemptCtrl.AttemptQuestions)
		attempts.POST("/:attemptId/answer", attemptCtrl.Answer)
		attempts.POST("/:attemptId/finish", attemptCtrl.Finish)
		attempts.GET("/:attemptId/summary", reviewCtrl.Summary)
		attempts.GET("/:attemptId/answers", reviewCtrl.Answers)
		attempts.GET("/:attemptId/review", reviewCtrl.Review)
		attempts.GET("/:attemptId/report", reportCtrl.DownloadReport)
	}

	users := r.Group("/users")
	{
		users.GET("/:userId/attempts", reviewCtrl.UserAttempts)
		users.GET("/:userId/balance", userCtrl.GetBalance)
	}
}
