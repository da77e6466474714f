package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"kiprej-bot/models"
)

func setupOrderRouter(env *testEnv) *gin.Engine {
	r := gin.New()
	h := &OrderHandler{Orders: env.svc.Orders}
	r.GET("/orders", h.GetOrders)
	r.GET("/orders/transitions", h.GetOrderTransitions)
	r.GET("/orders/:id", h.GetOrder)
	r.PUT("/orders/:id/status", h.UpdateOrderStatus)
	return r
}

func seedOrderEnv(t *testing.T) (*testEnv, *models.Order) {
	env := newTestEnv(t)
	c := env.seedCategory(t, "Coats")
	p := env.seedProduct(t, "Wool coat", c.ID, "M")
	env.seedUser(t, 100)
	return env, env.seedOrder(t, 100, p.ID, "M")
}

func TestGetOrders(t *testing.T) {
	env, order := seedOrderEnv(t)
	r := setupOrderRouter(env)

	w := serve(r, jsonRequest("GET", "/orders", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := len(parseResponseArray(w)); got != 1 {
		t.Errorf("Expected 1 order, got %d", got)
	}

	w = serve(r, jsonRequest("GET", "/orders/"+itoa(order.ID), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp["order_number"] != order.OrderNumber {
		t.Errorf("Expected order number %s, got %v", order.OrderNumber, resp["order_number"])
	}
	if items := resp["items"].([]interface{}); len(items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(items))
	}

	w = serve(r, jsonRequest("GET", "/orders/999", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	env, order := seedOrderEnv(t)
	r := setupOrderRouter(env)
	url := "/orders/" + itoa(order.ID) + "/status"

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"skip ahead", map[string]interface{}{"status": "delivered"}, http.StatusConflict},
		{"unknown status", map[string]interface{}{"status": "lost"}, http.StatusBadRequest},
		{"missing status", map[string]interface{}{}, http.StatusBadRequest},
		{"confirm and pay", map[string]interface{}{"status": "confirmed", "is_paid": true}, http.StatusOK},
		{"back to pending", map[string]interface{}{"status": "pending"}, http.StatusConflict},
		{"ship", map[string]interface{}{"status": "shipped"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, jsonRequest("PUT", url, tt.body))
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	var stored models.Order
	env.db.First(&stored, order.ID)
	if stored.Status != models.OrderStatusShipped || !stored.IsPaid {
		t.Errorf("Expected shipped and paid, got %s paid=%v", stored.Status, stored.IsPaid)
	}
	if stored.StatusNotified {
		t.Error("Expected a pending status notice")
	}
}

func TestGetOrderTransitions(t *testing.T) {
	env := newTestEnv(t)
	w := serve(setupOrderRouter(env), jsonRequest("GET", "/orders/transitions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if next := resp["pending"].([]interface{}); len(next) != 2 {
		t.Errorf("Expected 2 moves from pending, got %v", next)
	}
}
