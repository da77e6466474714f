package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kiprej-bot/dtos"
	"kiprej-bot/models"
	"kiprej-bot/services"
	"kiprej-bot/utils"
)

type OrderHandler struct {
	Orders *services.OrderService
}

func (h *OrderHandler) GetOrders(c *gin.Context) {
	orders, err := h.Orders.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch orders")
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	order, err := h.Orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "fetch order")
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus moves an order to a new status. Moves outside the
// transition table answer 409.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dtos.OrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	order, err := h.Orders.UpdateStatus(c.Request.Context(), id, models.OrderStatus(req.Status), req.IsPaid)
	if err != nil {
		respondError(c, err, "update order status")
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrderTransitions(c *gin.Context) {
	c.JSON(http.StatusOK, models.AllowedTransitions)
}
