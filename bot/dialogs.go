package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"kiprej-bot/fsm"
)

// startFlow begins the named dialogue, replacing any dialogue in progress.
func (b *Bot) startFlow(ctx context.Context, chatID, userID int64, name string, fields map[string]string) error {
	m, ok := b.flows[name]
	if !ok {
		return errors.Errorf("unknown flow %q", name)
	}
	d, reply, err := m.Begin(chatID, userID, fields)
	if err != nil {
		return err
	}
	if err := b.dialogs.Save(ctx, d); err != nil {
		return err
	}
	b.sendPrompt(chatID, reply)
	return nil
}

func (b *Bot) continueDialog(ctx context.Context, d *fsm.Dialog, in fsm.Input) error {
	m, ok := b.flows[d.Flow]
	if !ok {
		log.WithField("flow", d.Flow).Warn("Dropping dialogue of unknown flow")
		return b.dialogs.Clear(ctx, d.ChatID)
	}

	reply, err := m.Feed(ctx, d, in)
	if err != nil {
		if clearErr := b.dialogs.Clear(ctx, d.ChatID); clearErr != nil {
			log.WithError(clearErr).WithField("chat_id", d.ChatID).Warn("Failed to clear dialogue")
		}
		if errors.Is(err, fsm.ErrAborted) {
			return b.showMainMenu(ctx, d.ChatID, d.UserID, "Cancelled.")
		}
		return err
	}

	if reply.Finished {
		if err := b.dialogs.Clear(ctx, d.ChatID); err != nil {
			return err
		}
		return b.showMainMenu(ctx, d.ChatID, d.UserID, reply.Text)
	}

	if err := b.dialogs.Save(ctx, d); err != nil {
		return err
	}
	b.sendPrompt(d.ChatID, reply)
	return nil
}

func (b *Bot) cancelDialog(ctx context.Context, chatID, userID int64) error {
	if err := b.dialogs.Clear(ctx, chatID); err != nil {
		return err
	}
	return b.showMainMenu(ctx, chatID, userID, "Cancelled.")
}

func (b *Bot) sendPrompt(chatID int64, reply fsm.Reply) {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(reply.Options) > 0 {
		msg.ReplyMarkup = optionsKeyboard(reply.Options)
	} else {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	}
	b.send(msg)
}

func (b *Bot) showMainMenu(ctx context.Context, chatID, userID int64, text string) error {
	user, err := b.user(ctx, userID)
	if err != nil {
		return err
	}
	b.replyMarkup(chatID, text, mainMenu(user))
	return nil
}
