package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"examdesk-backend/internal/service"
)

type AttemptController struct {
	AttemptService service.AttemptService
}

func NewAttemptController(attemptService service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// CreateAttempt handles POST /banks/:bankId/attempts — redeems an exam token
// for a new attempt, or idempotently returns the attempt the token is
// already bound to.
func (ac *AttemptController) CreateAttempt(c *gin.Context) {
	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Token  string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and token are required"})
		return
	}

	result, err := ac.AttemptService.RedeemAndCreateAttempt(c.Param("bankId"), req.UserID, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"attempt_id":        result.Attempt.ID,
		"status":            result.Attempt.Status,
		"remaining_balance": result.RemainingBalance.StringFixed(2),
	})
}

// AttemptQuestions handles GET /attempts/:attemptId/questions?userId=
func (ac *AttemptController) AttemptQuestions(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	questions, err := ac.AttemptService.GetAttemptQuestions(c.Param("attemptId"), uint(userID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// Answer handles POST /attempts/:attemptId/answer
func (ac *AttemptController) Answer(c *gin.Context) {
	var req struct {
		QuestionID       string `json:"question_id" binding:"required"`
		SelectedOptionID string `json:"selected_option_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question_id and selected_option_id are required"})
		return
	}

	answer, err := ac.AttemptService.Answer(c.Param("attemptId"), req.QuestionID, req.SelectedOptionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"answer_id":          answer.ID,
		"question_id":        answer.QuestionID,
		"selected_option_id": answer.SelectedOptionID,
		"is_correct":         answer.IsCorrect,
	})
}

// Finish handles POST /attempts/:attemptId/finish. Safe to retry: a second
// call returns the frozen result unchanged.
func (ac *AttemptController) Finish(c *gin.Context) {
	result, err := ac.AttemptService.Finish(c.Param("attemptId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"attempt_id": result.AttemptID,
		"status":     result.Status,
		"score":      result.Score,
		"total":      result.Total,
		"stats": gin.H{
			"answered":   result.Answered,
			"correct":    result.Correct,
			"wrong":      result.Wrong,
			"unanswered": result.Unanswered,
		},
	})
}
