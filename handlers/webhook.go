package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SecretHeader carries the secret Telegram was given with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler processes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

type WebhookHandler struct {
	Bot    UpdateHandler
	Secret string
}

// Receive handles the update before answering. Telegram delivers the next
// update of the chat only after this one is acknowledged.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.GetHeader(SecretHeader)), []byte(h.Secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook secret"})
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.WithError(err).Warn("Rejected malformed webhook update")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed update"})
		return
	}

	h.Bot.HandleUpdate(context.WithoutCancel(c.Request.Context()), update)
	c.Status(http.StatusOK)
}
