package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rugsync/internal/database"
	"rugsync/internal/logger"
)

type IssueHandler struct {
	runs   *database.RunStore
	logger *logger.Logger
}

func NewIssueHandler(runs *database.RunStore, logger *logger.Logger) *IssueHandler {
	return &IssueHandler{
		runs:   runs,
		logger: logger,
	}
}

func (h *IssueHandler) List(c *gin.Context) {
	p := pageParams(c)

	// Filters
	filter := database.IssueFilter{
		ShopID:   c.Query("shop_id"),
		RunID:    c.Query("run_id"),
		SKU:      c.Query("sku"),
		Code:     c.Query("code"),
		Severity: c.Query("severity"),
	}
	switch c.Query("resolved") {
	case "true":
		v := true
		filter.Resolved = &v
	case "false":
		v := false
		filter.Resolved = &v
	}

	issues, total, err := h.runs.ListIssues(c.Request.Context(), filter, p.Offset, p.Limit)
	if err != nil {
		h.logger.Error("Failed to list issues: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch issues"})
		return
	}

	c.JSON(http.StatusOK, paginated(issues, p, total))
}

func (h *IssueHandler) Get(c *gin.Context) {
	issue, err := h.runs.GetIssue(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch issue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": issue})
}

func (h *IssueHandler) Resolve(c *gin.Context) {
	issue, err := h.runs.ResolveIssue(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
			return
		}
		h.logger.Error("Failed to resolve issue %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve issue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": issue})
}
