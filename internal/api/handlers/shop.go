package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rugsync/internal/database"
	"rugsync/internal/logger"
	"rugsync/internal/models"
)

// LastRunReader exposes the run tracker to the API.
type LastRunReader interface {
	LastSuccessfulRun(ctx context.Context, shopID string) (*time.Time, error)
}

type ShopHandler struct {
	shops   *database.ShopStore
	runs    *database.RunStore
	tracker LastRunReader
	logger  *logger.Logger
}

func NewShopHandler(shops *database.ShopStore, runs *database.RunStore, tracker LastRunReader, logger *logger.Logger) *ShopHandler {
	return &ShopHandler{
		shops:   shops,
		runs:    runs,
		tracker: tracker,
		logger:  logger,
	}
}

type shopView struct {
	models.Shop
	LastSuccessfulRun *time.Time `json:"last_successful_run"`
}

func (h *ShopHandler) view(ctx context.Context, shop models.Shop) shopView {
	v := shopView{Shop: shop}
	if h.tracker == nil {
		return v
	}
	last, err := h.tracker.LastSuccessfulRun(ctx, shop.ID)
	if err != nil {
		h.logger.Warn("Failed to read last run for shop %s: %v", shop.ID, err)
		return v
	}
	v.LastSuccessfulRun = last
	return v
}

func (h *ShopHandler) List(c *gin.Context) {
	shops, err := h.shops.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list shops: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch shops"})
		return
	}

	views := make([]shopView, 0, len(shops))
	for _, s := range shops {
		views = append(views, h.view(c.Request.Context(), s))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (h *ShopHandler) Get(c *gin.Context) {
	shop, err := h.shops.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch shop"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.view(c.Request.Context(), *shop)})
}

// Runs lists the run history of a shop, newest first.
func (h *ShopHandler) Runs(c *gin.Context) {
	p := pageParams(c)

	runs, total, err := h.runs.ListRuns(c.Request.Context(), c.Param("id"), p.Offset, p.Limit)
	if err != nil {
		h.logger.Error("Failed to list runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs"})
		return
	}

	c.JSON(http.StatusOK, paginated(runs, p, total))
}
