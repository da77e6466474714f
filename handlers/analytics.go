package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kiprej-bot/services"
)

type AnalyticsHandler struct {
	Analytics *services.AnalyticsService
	Reviews   *services.ReviewService
}

type popularProduct struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Views     int64  `json:"views"`
}

func (h *AnalyticsHandler) GetPopular(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}
	popular, err := h.Analytics.Popular(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "fetch popular products")
		return
	}
	out := make([]popularProduct, 0, len(popular))
	for _, p := range popular {
		out = append(out, popularProduct{ProductID: p.Product.ID, Name: p.Product.Name, Views: p.Views})
	}
	c.JSON(http.StatusOK, out)
}

func (h *AnalyticsHandler) GetPendingReviews(c *gin.Context) {
	reviews, err := h.Reviews.Pending(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch reviews")
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *AnalyticsHandler) ApproveReview(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	review, err := h.Reviews.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "approve review")
		return
	}
	c.JSON(http.StatusOK, review)
}
