package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kiprej-bot/dtos"
	"kiprej-bot/models"
	"kiprej-bot/services"
	"kiprej-bot/utils"
)

type PromotionHandler struct {
	Promotions *services.PromotionService
}

// GetPromotions returns the promotions running now.
func (h *PromotionHandler) GetPromotions(c *gin.Context) {
	promotions, err := h.Promotions.Active(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err, "fetch promotions")
		return
	}
	c.JSON(http.StatusOK, promotions)
}

// GetAllPromotions returns all promotions (active + inactive) for admin use
func (h *PromotionHandler) GetAllPromotions(c *gin.Context) {
	promotions, err := h.Promotions.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch promotions")
		return
	}
	c.JSON(http.StatusOK, promotions)
}

func (h *PromotionHandler) CreatePromotion(c *gin.Context) {
	var req dtos.PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	promotion := models.Promotion{Title: req.Title, Description: req.Description, IsActive: true}
	if req.IsActive != nil {
		promotion.IsActive = *req.IsActive
	}
	var err error
	if promotion.StartDate, err = parseDate(req.StartDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be RFC3339 or YYYY-MM-DD"})
		return
	}
	if promotion.EndDate, err = parseDate(req.EndDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be RFC3339 or YYYY-MM-DD"})
		return
	}

	created, err := h.Promotions.Create(c.Request.Context(), promotion)
	if err != nil {
		respondError(c, err, "create promotion")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *PromotionHandler) DeletePromotion(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Promotions.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "delete promotion")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Promotion deleted successfully"})
}

// parseDate accepts RFC3339 or a bare date. Empty means no date.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
