package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
)

type recordingBot struct {
	updates []tgbotapi.Update
}

func (b *recordingBot) HandleUpdate(_ context.Context, u tgbotapi.Update) {
	b.updates = append(b.updates, u)
}

func webhookRequest(secret, body string) *http.Request {
	req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	return req
}

func TestWebhookReceive(t *testing.T) {
	bot := &recordingBot{}
	h := &WebhookHandler{Bot: bot, Secret: "s3cret"}
	r := gin.New()
	r.POST("/webhook", h.Receive)

	update := `{"update_id":7,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"from":{"id":42,"is_bot":false,"first_name":"Anna"},"text":"/start"}}`

	tests := []struct {
		name   string
		secret string
		body   string
		want   int
	}{
		{"missing secret", "", update, http.StatusUnauthorized},
		{"wrong secret", "guess", update, http.StatusUnauthorized},
		{"malformed body", "s3cret", "{", http.StatusBadRequest},
		{"valid update", "s3cret", update, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, webhookRequest(tt.secret, tt.body))
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
		})
	}

	if len(bot.updates) != 1 {
		t.Fatalf("Expected 1 handled update, got %d", len(bot.updates))
	}
	u := bot.updates[0]
	if u.UpdateID != 7 || u.Message == nil || u.Message.Text != "/start" {
		t.Errorf("Unexpected update: %+v", u)
	}
}
