package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"

	"examdesk-backend/internal/service"
)

type ReportController struct {
	ReviewService service.ReviewService
}

func NewReportController(reviewService service.ReviewService) *ReportController {
	return &ReportController{ReviewService: reviewService}
}

// DownloadReport handles GET /attempts/:attemptId/report?userId= and renders
// the attempt review as a PDF.
func (rc *ReportController) DownloadReport(c *gin.Context) {
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

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	title := "Attempt Report"
	if review.Exam != nil {
		title = review.Exam.Title
	}
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s    Score: %d/%d", review.Attempt.Status, review.Attempt.Score, review.Attempt.Total))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Answered: %d    Correct: %d    Wrong: %d    Unanswered: %d",
		review.Stats.Answered, review.Stats.Correct, review.Stats.Wrong, review.Stats.Unanswered))
	pdf.Ln(12)

	for i, item := range review.Items {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s", i+1, item.QuestionText), "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
		verdict := "wrong"
		if item.IsCorrect {
			verdict = "correct"
		}
		pdf.MultiCell(0, 5, fmt.Sprintf("Your answer: %s (%s)", item.SelectedText, verdict), "", "L", false)
		if item.CorrectOptionText != "" {
			pdf.MultiCell(0, 5, "Correct answer: "+item.CorrectOptionText, "", "L", false)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=attempt_report.pdf")
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
