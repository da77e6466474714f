package bot

import (
	"context"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"kiprej-bot/fsm"
	"kiprej-bot/models"
	"kiprej-bot/services"
	"kiprej-bot/testutil"
)

// fakeAPI records everything the bot sends.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	// sendErrs are returned by the next Send calls, one per call.
	sendErrs []error
	// updates feeds Run when set.
	updates chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return tgbotapi.Message{}, err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return "https://api.telegram.org/file/bot/" + fileID, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	if f.updates != nil {
		return f.updates
	}
	return make(chan tgbotapi.Update)
}

func (f *fakeAPI) StopReceivingUpdates() {}

// texts returns the text of every plain message sent so far.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		case tgbotapi.PhotoConfig:
			out = append(out, m.Caption)
		}
	}
	return out
}

func (f *fakeAPI) lastText(t *testing.T) string {
	texts := f.texts()
	require.NotEmpty(t, texts)
	return texts[len(texts)-1]
}

// answers returns the callback answers sent so far.
func (f *fakeAPI) answers() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

type harness struct {
	bot     *Bot
	api     *fakeAPI
	svc     *services.Services
	dialogs *fsm.MemoryStore
}

func newHarness(t *testing.T) *harness {
	db := testutil.NewDB(t)
	api := &fakeAPI{}
	svc := services.New(db, nil)
	dialogs := fsm.NewMemoryStore()
	b := New(api, svc, dialogs, Options{PageSize: 5, ContactsText: "Call us", DeliveryText: "We ship daily"})
	return &harness{bot: b, api: api, svc: svc, dialogs: dialogs}
}

// say delivers a text message from userID in its private chat.
func (h *harness) say(userID int64, text string) {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

func (h *harness) press(userID int64, data string) {
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}})
}

func (h *harness) register(t *testing.T, telegramID int64, role models.Role) *models.User {
	u, err := h.svc.Users.Register(context.Background(), services.Registration{
		TelegramID: telegramID, FullName: "Ivan Petrov", Phone: "+79991234567",
	})
	require.NoError(t, err)
	if role != models.RoleUser {
		require.NoError(t, h.svc.Users.DB.Model(u).Update("role", role).Error)
		u.Role = role
	}
	return u
}

func (h *harness) product(t *testing.T) *models.Product {
	ctx := context.Background()
	c, err := h.svc.Categories.Create(ctx, "Coats", "")
	require.NoError(t, err)
	p, err := h.svc.Products.Create(ctx, services.NewProduct{
		CategoryID: c.ID,
		Name:       "Wool coat",
		Price:      decimal.NewFromInt(1000),
		Variants: []services.NewVariant{
			{Size: "M", Markup: decimal.NewFromInt(200), DiscountPercent: decimal.NewFromInt(10), Stock: 5},
		},
	})
	require.NoError(t, err)
	return p
}

func (h *harness) activeDialog(t *testing.T, chatID int64) *fsm.Dialog {
	d, err := h.dialogs.Load(context.Background(), chatID)
	require.NoError(t, err)
	return d
}
