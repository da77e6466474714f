// Package bot is the Telegram front end of the store. It turns updates into
// service calls, runs the data-entry dialogues and renders the replies.
package bot

import (
	"context"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"kiprej-bot/fsm"
	"kiprej-bot/models"
	"kiprej-bot/notifications"
	"kiprej-bot/services"
	"kiprej-bot/utils"
)

type Options struct {
	PageSize     int
	Workers      int
	ContactsText string
	DeliveryText string
	// TokenTTL is the lifetime of admin API tokens issued by /api_token.
	TokenTTL   time.Duration
	HTTPClient *http.Client
}

// Broadcaster runs one notification pass on demand.
type Broadcaster interface {
	Run(ctx context.Context) (notifications.Report, error)
}

type Bot struct {
	api         API
	svc         *services.Services
	dialogs     fsm.Store
	opts        Options
	flows       map[string]*fsm.Machine
	commands    map[string]command
	buttons     map[string]string
	broadcaster Broadcaster
	sendRetry   utils.RetryConfig
	chats       chatLocks
}

func New(api API, svc *services.Services, dialogs fsm.Store, opts Options) *Bot {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	b := &Bot{api: api, svc: svc, dialogs: dialogs, opts: opts}
	b.sendRetry = utils.RetryConfig{
		MaxAttempts: 3,
		Backoff:     utils.ExponentialBackoff(time.Second),
		ShouldRetry: isFloodWait,
	}
	b.flows = b.buildFlows()
	b.commands, b.buttons = b.buildCommands()
	return b
}

func (b *Bot) SetBroadcaster(br Broadcaster) {
	b.broadcaster = br
}

// Run long-polls for updates until ctx is cancelled. Each chat is pinned to
// one of the workers, so its updates are handled one at a time and in the
// order Telegram sent them. In-flight updates are allowed to finish.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := b.api.GetUpdatesChan(cfg)

	var g errgroup.Group
	work := context.WithoutCancel(ctx)
	lanes := make([]chan tgbotapi.Update, b.opts.Workers)
	for i := range lanes {
		lane := make(chan tgbotapi.Update, laneBuffer)
		lanes[i] = lane
		g.Go(func() error {
			for update := range lane {
				b.HandleUpdate(work, update)
			}
			return nil
		})
	}
	drain := func() error {
		for _, lane := range lanes {
			close(lane)
		}
		return g.Wait()
	}

	log.WithField("workers", b.opts.Workers).Info("Bot is polling for updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return drain()
		case update, ok := <-updates:
			if !ok {
				return drain()
			}
			select {
			case lanes[laneOf(chatOf(update), len(lanes))] <- update:
			case <-ctx.Done():
				b.api.StopReceivingUpdates()
				return drain()
			}
		}
	}
}

// HandleUpdate processes one update. Updates of the same chat never run
// concurrently. Panics are recovered and logged.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer b.chats.lock(chatOf(update))()
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"update_id": update.UpdateID, "panic": r}).Error("Recovered from panic in update handler")
		}
	}()

	switch {
	case update.Message != nil:
		msg := update.Message
		if err := b.handleMessage(ctx, msg); err != nil {
			b.reportError(msg.Chat.ID, err)
		}
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if err := b.handleCallback(ctx, q); err != nil {
			b.answer(q.ID, "")
			if q.Message != nil {
				b.reportError(q.Message.Chat.ID, err)
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	chatID, userID := msg.Chat.ID, msg.From.ID
	text := strings.TrimSpace(msg.Text)

	if text == "/cancel" {
		return b.cancelDialog(ctx, chatID, userID)
	}

	d, err := b.dialogs.Load(ctx, chatID)
	if err != nil {
		return err
	}
	if d != nil {
		return b.continueDialog(ctx, d, inputOf(msg))
	}
	return b.dispatch(ctx, msg)
}

func inputOf(msg *tgbotapi.Message) fsm.Input {
	if n := len(msg.Photo); n > 0 {
		return fsm.Input{Kind: fsm.Photo, FileID: msg.Photo[n-1].FileID}
	}
	text := strings.TrimSpace(msg.Text)
	if text == "/done" {
		return fsm.Input{Kind: fsm.Finish}
	}
	return fsm.Input{Kind: fsm.Text, Text: text}
}

func (b *Bot) user(ctx context.Context, telegramID int64) (*models.User, error) {
	return b.svc.Users.Find(ctx, telegramID)
}

// reportError turns a failed operation into a reply. Expected failures are
// shown to the user; anything else is logged and answered generically.
func (b *Bot) reportError(chatID int64, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		b.reply(chatID, "❌ You don't have access to this.")
	case errors.Is(err, services.ErrNotFound):
		b.reply(chatID, "🔍 Not found: "+err.Error())
	case errors.Is(err, services.ErrConflict):
		b.reply(chatID, "⚠️ "+err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		b.reply(chatID, "✏️ "+err.Error())
	default:
		log.WithError(err).WithField("chat_id", chatID).Error("Failed to handle update")
		b.reply(chatID, "Something went wrong, please try again later.")
	}
}

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := b.api.Send(c)
	if err != nil {
		log.WithError(err).Warn("Failed to send message")
	}
	return m, err
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) replyMarkup(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	b.send(msg)
}

func (b *Bot) replyHTML(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	b.send(msg)
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.WithError(err).Debug("Failed to answer callback")
	}
}

// SendText delivers one HTML message and reports the failure to the caller.
// Flood-wait rejections are retried with backoff.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return utils.Retry(ctx, b.sendRetry, func() error {
		_, err := b.api.Send(msg)
		return err
	})
}

func isFloodWait(err error) bool {
	var tgErr *tgbotapi.Error
	return errors.As(err, &tgErr) && tgErr.Code == http.StatusTooManyRequests
}
