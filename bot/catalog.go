package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"kiprej-bot/catalog"
	"kiprej-bot/fsm"
	"kiprej-bot/models"
	"kiprej-bot/services"
	"kiprej-bot/utils"
)

func (b *Bot) cmdCatalog(ctx context.Context, r *request) error {
	categories, err := b.svc.Categories.List(ctx)
	if err != nil {
		return err
	}
	b.replyMarkup(r.chatID, "Choose a category:", categoryKeyboard(categories))
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.Message == nil || q.From == nil {
		b.answer(q.ID, "")
		return nil
	}
	switch callbackPrefix(q.Data) {
	case prefixCatalog:
		return b.onCatalog(ctx, q)
	case prefixCard:
		return b.onCard(ctx, q)
	case prefixCart:
		return b.onCart(ctx, q)
	case prefixAddress:
		return b.onAddress(ctx, q)
	default:
		b.answer(q.ID, "")
		return nil
	}
}

func (b *Bot) onCatalog(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	a, err := parseCatalog(q.Data)
	if err != nil {
		return err
	}
	chatID := q.Message.Chat.ID

	switch a.Action {
	case actCategory:
		sizes, err := b.svc.Catalog.AvailableSizes(ctx, a.Category())
		if err != nil {
			return err
		}
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, q.Message.MessageID, "Choose a size:", sizeKeyboard(a.CategoryID, sizes)))
		b.answer(q.ID, "")
		return nil

	case actShow:
		page, err := b.svc.Catalog.Page(ctx, services.Query{CategoryID: a.Category(), Size: a.Size}, a.Page, b.opts.PageSize)
		if err != nil {
			return err
		}
		b.answer(q.ID, "")
		if len(page.Products) == 0 {
			b.reply(chatID, "No products match your choice.")
			return nil
		}
		for i := range page.Products {
			b.sendCard(ctx, chatID, q.From.ID, &page.Products[i], a.Size)
		}
		if kb, ok := pageKeyboard(a, page); ok {
			b.replyMarkup(chatID, fmt.Sprintf("Page %d of %d", page.Number, page.Pages), kb)
		}
		return nil
	}

	b.answer(q.ID, "")
	return nil
}

// sendCard shows a product card. A size the listing was filtered by is
// preselected. Each card shown counts as a product view.
func (b *Bot) sendCard(ctx context.Context, chatID, userID int64, p *models.Product, size string) {
	if size != "" && catalog.InStockVariant(p, size) == nil {
		size = ""
	}
	card := catalog.FormatCard(p, catalog.FindVariant(p, size), 0, len(p.Images))
	kb := cardKeyboard(p, 0, size, 1)

	if len(p.Images) > 0 {
		photo := tgbotapi.NewPhoto(chatID, imageFile(p.Images[0].ImageURL))
		photo.Caption = card.Caption()
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = kb
		b.send(photo)
	} else {
		b.replyHTML(chatID, card.Caption(), kb)
	}

	if err := b.svc.Analytics.RecordView(ctx, p.ID, userID); err != nil {
		log.WithError(err).WithField("product_id", p.ID).Warn("Failed to record product view")
	}
}

func imageFile(ref string) tgbotapi.RequestFileData {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return tgbotapi.FileURL(ref)
	}
	return tgbotapi.FilePath(ref)
}

func (b *Bot) onCard(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	a, err := parseCard(q.Data)
	if err != nil {
		return err
	}
	p, err := b.svc.Catalog.Product(ctx, a.ProductID)
	if errors.Is(err, services.ErrNotFound) {
		b.answer(q.ID, "This product is no longer available.")
		return nil
	}
	if err != nil {
		return err
	}

	if a.Action == actAdd {
		return b.addToCart(ctx, q, a)
	}

	n := len(p.Images)
	image := 0
	if n > 0 {
		image = ((a.Image % n) + n) % n
	}
	qty := max(1, a.Quantity)
	card := catalog.FormatCard(p, catalog.FindVariant(p, a.Size), image, n)
	kb := cardKeyboard(p, image, a.Size, qty)
	chatID, messageID := q.Message.Chat.ID, q.Message.MessageID

	switch {
	case a.Action == actPhoto && n > 0:
		media := tgbotapi.NewInputMediaPhoto(imageFile(p.Images[image].ImageURL))
		media.Caption = card.Caption()
		media.ParseMode = tgbotapi.ModeHTML
		b.send(tgbotapi.EditMessageMediaConfig{
			BaseEdit: tgbotapi.BaseEdit{ChatID: chatID, MessageID: messageID, ReplyMarkup: &kb},
			Media:    media,
		})
	case len(q.Message.Photo) > 0:
		edit := tgbotapi.NewEditMessageCaption(chatID, messageID, card.Caption())
		edit.ParseMode = tgbotapi.ModeHTML
		edit.ReplyMarkup = &kb
		b.send(edit)
	default:
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, card.Caption(), kb)
		edit.ParseMode = tgbotapi.ModeHTML
		b.send(edit)
	}
	b.answer(q.ID, "")
	return nil
}

func (b *Bot) addToCart(ctx context.Context, q *tgbotapi.CallbackQuery, a CardAction) error {
	user, err := b.user(ctx, q.From.ID)
	if err != nil {
		return err
	}
	if user == nil {
		b.alert(q.ID, "Please register first: use the 📝 Registration button.")
		return nil
	}
	line, err := b.svc.Cart.Add(ctx, services.AddToCart{
		TelegramID: q.From.ID,
		ProductID:  a.ProductID,
		Size:       a.Size,
		Quantity:   max(1, a.Quantity),
	})
	if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrInvalidInput) {
		b.alert(q.ID, "This size is not available.")
		return nil
	}
	if err != nil {
		return err
	}
	b.answer(q.ID, fmt.Sprintf("🛒 Added. In cart: %d", line.Quantity))
	return nil
}

func (b *Bot) alert(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		log.WithError(err).Debug("Failed to answer callback")
	}
}

// lookupProduct resolves a typed product id inside a dialogue.
func (b *Bot) lookupProduct(ctx context.Context, text string) (*models.Product, error) {
	id, err := utils.ParseID(text)
	if err != nil {
		return nil, fsm.Invalid("%s", err.Error())
	}
	p, err := b.svc.Catalog.Product(ctx, id)
	if errors.Is(err, services.ErrNotFound) {
		return nil, fsm.Invalid("There is no product %d.", id)
	}
	return p, err
}
