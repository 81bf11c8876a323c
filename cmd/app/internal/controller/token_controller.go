package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"examdesk-backend/internal/service"
)

type TokenController struct {
	TokenService service.TokenService
}

func NewTokenController(tokenService service.TokenService) *TokenController {
	return &TokenController{TokenService: tokenService}
}

// CreateExamToken handles POST /banks/:bankId/exam-token
func (tc *TokenController) CreateExamToken(c *gin.Context) {
	var req struct {
		UserID     uint `json:"user_id" binding:"required"`
		TTLMinutes int  `json:"ttl_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	token, err := tc.TokenService.Issue(c.Param("bankId"), req.UserID, req.TTLMinutes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
		"url":        "/exam-token/" + token.Token,
	})
}

// RevokeExamToken handles POST /banks/:bankId/exam-token/revoke.
// A missing or already-used token reports revoked:false, never an error.
func (tc *TokenController) RevokeExamToken(c *gin.Context) {
	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Token  string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and token are required"})
		return
	}

	count, err := tc.TokenService.Revoke(c.Param("bankId"), req.UserID, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "revoked": count > 0})
}

// DeleteExamToken handles POST /banks/:bankId/exam-token/delete
func (tc *TokenController) DeleteExamToken(c *gin.Context) {
	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Token  string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and token are required"})
		return
	}

	count, err := tc.TokenService.Delete(c.Param("bankId"), req.UserID, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": count > 0})
}
