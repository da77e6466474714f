package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	r := gin.New()
	r.GET("/health", (&HealthHandler{DB: env.db}).Health)

	w := serve(r, jsonRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := parseResponse(w)["status"]; got != "ok" {
		t.Errorf("Expected status ok, got %v", got)
	}

	sqlDB, _ := env.db.DB()
	sqlDB.Close()
	w = serve(r, jsonRequest("GET", "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 after the database closed, got %d", w.Code)
	}
}
