package dtos

import (
	"kiprej-bot/catalog"
	"kiprej-bot/models"
)

// ProductListResponse is one page of the public catalog.
type ProductListResponse struct {
	Products   []models.Product `json:"products"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

// ProductCardResponse is a product card plus the choices it was built from.
type ProductCardResponse struct {
	Card   catalog.Card `json:"card"`
	Sizes  []string     `json:"sizes"`
	Images []string     `json:"images"`
}

// OrderStatusRequest is the admin order status update body.
type OrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed shipped delivered cancelled"`
	IsPaid *bool  `json:"is_paid"`
}

// PromotionRequest is the admin promotion creation body.
type PromotionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}
