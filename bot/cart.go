package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"kiprej-bot/models"
	"kiprej-bot/services"
)

func decimalInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

func formatCart(cart *models.Cart) string {
	if len(cart.Items) == 0 {
		return "Your cart is empty."
	}
	var sb strings.Builder
	sb.WriteString("<b>Your cart</b>\n\n")
	for i, item := range cart.Items {
		fmt.Fprintf(&sb, "%d. %s", i+1, esc(item.Product.Name))
		if item.Variant != nil {
			fmt.Fprintf(&sb, " (%s)", esc(item.Variant.Size))
		}
		fmt.Fprintf(&sb, "\n   %d × %s = %s\n", item.Quantity, item.PriceAtTime.StringFixed(2), item.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&sb, "\nTotal: <b>%s</b>", services.Total(cart.Items).StringFixed(2))
	return sb.String()
}

func (b *Bot) cmdCart(ctx context.Context, r *request) error {
	cart, err := b.svc.Cart.Get(ctx, r.userID)
	if err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		b.reply(r.chatID, formatCart(cart))
		return nil
	}
	b.replyHTML(r.chatID, formatCart(cart), cartKeyboard(cart.Items))
	return nil
}

// registered answers the callback with a hint when the sender has no profile.
func (b *Bot) registered(ctx context.Context, q *tgbotapi.CallbackQuery) (*models.User, error) {
	user, err := b.user(ctx, q.From.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		b.alert(q.ID, "Please register first: use the 📝 Registration button.")
	}
	return user, nil
}

func (b *Bot) onCart(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	a, err := parseRef(q.Data)
	if err != nil {
		return err
	}
	user, err := b.registered(ctx, q)
	if err != nil || user == nil {
		return err
	}
	chatID, messageID := q.Message.Chat.ID, q.Message.MessageID

	switch a.Action {
	case "rm":
		if err := b.svc.Cart.RemoveLine(ctx, q.From.ID, a.ID); err != nil {
			return err
		}
	case "clear":
		if err := b.svc.Cart.Clear(ctx, q.From.ID); err != nil {
			return err
		}
	case "checkout":
		return b.beginCheckout(ctx, q)
	}

	cart, err := b.svc.Cart.Get(ctx, q.From.ID)
	if err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, formatCart(cart))
	edit.ParseMode = tgbotapi.ModeHTML
	if len(cart.Items) > 0 {
		kb := cartKeyboard(cart.Items)
		edit.ReplyMarkup = &kb
	}
	b.send(edit)
	b.answer(q.ID, "")
	return nil
}

func (b *Bot) beginCheckout(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	cart, err := b.svc.Cart.Get(ctx, q.From.ID)
	if err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		b.alert(q.ID, "Your cart is empty.")
		return nil
	}
	addresses, err := b.svc.Addresses.List(ctx, q.From.ID)
	if err != nil {
		return err
	}
	fields := map[string]string{"total": services.Total(cart.Items).StringFixed(2)}
	for i, a := range addresses {
		fields[addrKey(i+1)] = a.String()
	}
	b.answer(q.ID, "")
	return b.startFlow(ctx, q.Message.Chat.ID, q.From.ID, flowCheckout, fields)
}

func (b *Bot) onAddress(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	a, err := parseRef(q.Data)
	if err != nil {
		return err
	}
	user, err := b.registered(ctx, q)
	if err != nil || user == nil {
		return err
	}

	switch a.Action {
	case "add":
		b.answer(q.ID, "")
		return b.startFlow(ctx, q.Message.Chat.ID, q.From.ID, flowAddAddress, nil)
	case "del":
		if err := b.svc.Addresses.Delete(ctx, q.From.ID, a.ID); err != nil {
			return err
		}
		b.answer(q.ID, "Address deleted.")
		return b.cmdAddresses(ctx, &request{chatID: q.Message.Chat.ID, userID: q.From.ID, user: user})
	}
	b.answer(q.ID, "")
	return nil
}
