package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"examdesk-backend/internal/apperr"
	"examdesk-backend/pkg/logging"
)

// respondError maps domain failures to 400 with a machine-readable kind.
// Anything without a kind is a persistence or programming fault and
// surfaces as 500.
func respondError(c *gin.Context, err error) {
	if kind := apperr.KindOf(err); kind != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": kind})
		return
	}
	logging.Error("unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
