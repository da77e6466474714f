package bot

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"kiprej-bot/models"
	"kiprej-bot/notifications"
	"kiprej-bot/utils"
)

const popularLimit = 5

func (b *Bot) cmdAdminMenu(ctx context.Context, r *request) error {
	b.replyMarkup(r.chatID, "🔧 Admin menu:", adminMenu)
	return nil
}

func (b *Bot) cmdCategoriesMenu(ctx context.Context, r *request) error {
	b.replyMarkup(r.chatID, "Category management:", categoryMenu)
	return nil
}

func (b *Bot) cmdProductsMenu(ctx context.Context, r *request) error {
	b.replyMarkup(r.chatID, "Product management:", productMenu)
	return nil
}

func (b *Bot) cmdAddCategory(ctx context.Context, r *request) error {
	return b.startFlow(ctx, r.chatID, r.userID, flowAddCategory, nil)
}

func (b *Bot) cmdEditCategory(ctx context.Context, r *request) error {
	return b.startFlow(ctx, r.chatID, r.userID, flowEditCategory, nil)
}

func (b *Bot) cmdListCategories(ctx context.Context, r *request) error {
	categories, err := b.svc.Categories.List(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		b.reply(r.chatID, "There are no categories yet.")
		return nil
	}
	var sb strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&sb, "%d. <b>%s</b> %s\n", c.ID, esc(c.Name), esc(c.Description))
	}
	sb.WriteString("\nDelete one with /delete_category <id>")
	b.replyHTML(r.chatID, sb.String(), nil)
	return nil
}

func (b *Bot) cmdDeleteCategory(ctx context.Context, r *request) error {
	id, err := utils.ParseID(r.args)
	if err != nil {
		b.reply(r.chatID, "Usage: /delete_category <id>")
		return nil
	}
	if err := b.svc.Categories.Delete(ctx, id); err != nil {
		return err
	}
	b.reply(r.chatID, "🗑 Category deleted.")
	return nil
}

func (b *Bot) cmdAddProduct(ctx context.Context, r *request) error {
	categories, err := b.svc.Categories.List(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		b.reply(r.chatID, "Create a category first.")
		return nil
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return b.startFlow(ctx, r.chatID, r.userID, flowAddProduct, map[string]string{
		"categories": strings.Join(names, "\n"),
	})
}

func (b *Bot) cmdEditProduct(ctx context.Context, r *request) error {
	return b.startFlow(ctx, r.chatID, r.userID, flowEditProduct, nil)
}

func (b *Bot) cmdDeleteProduct(ctx context.Context, r *request) error {
	return b.startFlow(ctx, r.chatID, r.userID, flowDeleteProduct, nil)
}

func (b *Bot) cmdAllProducts(ctx context.Context, r *request) error {
	var buf bytes.Buffer
	if err := b.svc.Export.WriteProducts(ctx, &buf); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(r.chatID, tgbotapi.FileBytes{Name: "products.xlsx", Bytes: buf.Bytes()})
	doc.Caption = "All products"
	b.send(doc)
	return nil
}

func (b *Bot) cmdListUsers(ctx context.Context, r *request) error {
	users, err := b.svc.Users.List(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		b.reply(r.chatID, "No users yet.")
		return nil
	}
	var sb strings.Builder
	for _, u := range users {
		fmt.Fprintf(&sb, "<code>%d</code> %s, %s\n", u.TelegramID, esc(u.FullName), u.Role)
	}
	sb.WriteString("\nDetails: /user <telegram_id>")
	b.replyHTML(r.chatID, sb.String(), nil)
	return nil
}

func (b *Bot) cmdUserDetails(ctx context.Context, r *request) error {
	telegramID, err := strconv.ParseInt(strings.TrimSpace(r.args), 10, 64)
	if err != nil {
		b.reply(r.chatID, "Usage: /user <telegram_id>")
		return nil
	}
	u, orders, err := b.svc.Users.Details(ctx, telegramID)
	if err != nil {
		return err
	}
	email := ""
	if u.Email != nil {
		email = *u.Email
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b> (<code>%d</code>)\nRole: %s\nEmail: %s\nPhone: %s\nSubscribed: %t\nRegistered: %s\nOrders: %d\n",
		esc(u.FullName), u.TelegramID, u.Role, esc(orDash(email)), esc(u.Phone), u.IsSubscribed,
		u.CreatedAt.Format("02.01.2006"), orders)
	for _, a := range u.Addresses {
		fmt.Fprintf(&sb, "🏠 %s\n", esc(a.String()))
	}
	b.replyHTML(r.chatID, sb.String(), nil)
	return nil
}

func (b *Bot) cmdListOrders(ctx context.Context, r *request) error {
	orders, err := b.svc.Orders.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		b.reply(r.chatID, "No orders yet.")
		return nil
	}
	var sb strings.Builder
	for _, o := range orders {
		owner := "deleted user"
		if o.User != nil {
			owner = o.User.FullName
		}
		fmt.Fprintf(&sb, "#%d %s, %s, %s, %s\n", o.ID, esc(o.OrderNumber), esc(owner), o.Status, o.Total.StringFixed(2))
	}
	sb.WriteString("\nDetails: /order <id>\nStatus: /update_order <id> <status> [yes|no]")
	b.replyHTML(r.chatID, sb.String(), nil)
	return nil
}

func (b *Bot) cmdOrder(ctx context.Context, r *request) error {
	id, err := utils.ParseID(r.args)
	if err != nil {
		b.reply(r.chatID, "Usage: /order <id>")
		return nil
	}
	o, err := b.svc.Orders.Get(ctx, id)
	if err != nil {
		return err
	}
	b.replyHTML(r.chatID, formatOrder(o), nil)
	return nil
}

func (b *Bot) cmdUpdateOrder(ctx context.Context, r *request) error {
	fields := strings.Fields(r.args)
	if len(fields) < 2 || len(fields) > 3 {
		b.reply(r.chatID, "Usage: /update_order <id> <pending|confirmed|shipped|delivered|cancelled> [yes|no]")
		return nil
	}
	id, err := utils.ParseID(fields[0])
	if err != nil {
		b.reply(r.chatID, "The order id must be a positive number.")
		return nil
	}
	var paid *bool
	if len(fields) == 3 {
		v := strings.EqualFold(fields[2], yes)
		if !v && !strings.EqualFold(fields[2], no) {
			b.reply(r.chatID, "The paid flag must be yes or no.")
			return nil
		}
		paid = &v
	}
	o, err := b.svc.Orders.UpdateStatus(ctx, id, models.OrderStatus(strings.ToLower(fields[1])), paid)
	if err != nil {
		return err
	}
	b.reply(r.chatID, fmt.Sprintf("✅ Order %s is now %s (paid: %t).", o.OrderNumber, o.Status, o.IsPaid))
	return nil
}

func (b *Bot) cmdPopular(ctx context.Context, r *request) error {
	popular, err := b.svc.Analytics.Popular(ctx, popularLimit)
	if err != nil {
		return err
	}
	if len(popular) == 0 {
		b.reply(r.chatID, "No product views yet.")
		return nil
	}
	var sb strings.Builder
	sb.WriteString("<b>Most viewed products</b>\n")
	for i, p := range popular {
		fmt.Fprintf(&sb, "%d. %s (id %d): %d views\n", i+1, esc(p.Product.Name), p.Product.ID, p.Views)
	}
	b.replyHTML(r.chatID, sb.String(), nil)
	return nil
}

func (b *Bot) cmdPendingReviews(ctx context.Context, r *request) error {
	reviews, err := b.svc.Reviews.Pending(ctx)
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		b.reply(r.chatID, "No reviews waiting for approval.")
		return nil
	}
	var sb strings.Builder
	for _, rv := range reviews {
		author := "customer"
		if rv.User != nil {
			author = rv.User.FullName
		}
		fmt.Fprintf(&sb, "#%d product %d, %d/5 by %s\n%s\n\n", rv.ID, rv.ProductID, rv.Rating, esc(author), esc(rv.Comment))
	}
	sb.WriteString("Approve: /approve_review <id>")
	b.replyHTML(r.chatID, sb.String(), nil)
	return nil
}

func (b *Bot) cmdApproveReview(ctx context.Context, r *request) error {
	id, err := utils.ParseID(r.args)
	if err != nil {
		b.reply(r.chatID, "Usage: /approve_review <id>")
		return nil
	}
	if _, err := b.svc.Reviews.Approve(ctx, id); err != nil {
		return err
	}
	b.reply(r.chatID, "✅ Review approved.")
	return nil
}

// cmdBroadcast starts a notification pass in the background and reports
// the outcome when it finishes.
func (b *Bot) cmdBroadcast(ctx context.Context, r *request) error {
	if b.broadcaster == nil {
		b.reply(r.chatID, "Broadcasting is not configured.")
		return nil
	}
	b.reply(r.chatID, "📣 Broadcast started.")
	go func() {
		report, err := b.broadcaster.Run(ctx)
		if errors.Is(err, notifications.ErrBroadcastRunning) {
			b.reply(r.chatID, "A broadcast is already running.")
			return
		}
		if err != nil {
			log.WithError(err).Error("Broadcast triggered from the bot failed")
			b.reply(r.chatID, "Broadcast failed, see the logs.")
			return
		}
		b.reply(r.chatID, "📣 Broadcast finished. "+report.String())
	}()
	return nil
}

func (b *Bot) cmdAPIToken(ctx context.Context, r *request) error {
	token, err := utils.GenerateToken(r.user.ID, r.user.TelegramID, string(r.user.Role), b.opts.TokenTTL)
	if err != nil {
		return err
	}
	b.replyHTML(r.chatID, fmt.Sprintf("Admin API token, valid for %s:\n<code>%s</code>", b.opts.TokenTTL, token), nil)
	return nil
}

func (b *Bot) cmdSetRole(ctx context.Context, r *request) error {
	fields := strings.Fields(r.args)
	if len(fields) != 2 {
		b.reply(r.chatID, "Usage: /set_role <telegram_id> <user|admin|superuser>")
		return nil
	}
	telegramID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		b.reply(r.chatID, "The telegram id must be a number.")
		return nil
	}
	target, err := b.svc.Users.SetRole(ctx, r.user, telegramID, models.Role(strings.ToLower(fields[1])))
	if err != nil {
		return err
	}
	b.reply(r.chatID, fmt.Sprintf("✅ %s is now %s.", target.FullName, target.Role))
	return nil
}
