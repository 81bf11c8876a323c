package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"examdesk-backend/internal/service"
)

type ReviewController struct {
	ReviewService service.ReviewService
}

func NewReviewController(reviewService service.ReviewService) *ReviewController {
	return &ReviewController{ReviewService: reviewService}
}

// Summary handles GET /attempts/:attemptId/summary
func (rc *ReviewController) Summary(c *gin.Context) {
	summary, err := rc.ReviewService.Summary(c.Param("attemptId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Answers handles GET /attempts/:attemptId/answers
func (rc *ReviewController) Answers(c *gin.Context) {
	answers, err := rc.ReviewService.AttemptAnswers(c.Param("attemptId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answers": answers})
}

// Review handles GET /attempts/:attemptId/review?userId=
func (rc *ReviewController) Review(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	review, err := rc.ReviewService.Review(c.Param("attemptId"), uint(userID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// UserAttempts handles GET /users/:userId/attempts?status=
func (rc *ReviewController) UserAttempts(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	attempts, err := rc.ReviewService.UserAttempts(uint(userID), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}
