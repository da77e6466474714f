package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"kiprej-bot/models"
	"kiprej-bot/utils"
)

const helpText = `Use the menu buttons or these commands:
/catalog - browse products
/cart - your cart
/orders - your orders
/addresses - saved addresses
/profile - profile settings
/reviews <product_id> - read reviews
/review <product_id> <1-5> [comment] - leave a review
/cancel - stop the current dialogue`

func (b *Bot) cmdStart(ctx context.Context, r *request) error {
	greeting := "Welcome to Kiprej!"
	if r.user != nil {
		greeting = fmt.Sprintf("Welcome back, %s!", r.user.FullName)
	}
	b.replyMarkup(r.chatID, greeting, mainMenu(r.user))
	return nil
}

func (b *Bot) cmdHelp(ctx context.Context, r *request) error {
	b.reply(r.chatID, helpText)
	return nil
}

func (b *Bot) cmdContacts(ctx context.Context, r *request) error {
	b.reply(r.chatID, b.opts.ContactsText)
	return nil
}

func (b *Bot) cmdDelivery(ctx context.Context, r *request) error {
	b.reply(r.chatID, b.opts.DeliveryText)
	return nil
}

func (b *Bot) cmdRegister(ctx context.Context, r *request) error {
	if r.user != nil {
		b.replyMarkup(r.chatID, "You are already registered.", mainMenu(r.user))
		return nil
	}
	return b.startFlow(ctx, r.chatID, r.userID, flowRegister, nil)
}

func (b *Bot) cmdProfile(ctx context.Context, r *request) error {
	b.replyMarkup(r.chatID, "Profile settings:", profileMenu(r.user))
	return nil
}

func (b *Bot) cmdShowProfile(ctx context.Context, r *request) error {
	u := r.user
	email := ""
	if u.Email != nil {
		email = *u.Email
	}
	subscribed := "no"
	if u.IsSubscribed {
		subscribed = "yes"
	}
	b.replyHTML(r.chatID, fmt.Sprintf("<b>%s</b>\nEmail: %s\nPhone: %s\nNewsletter: %s\nRole: %s",
		esc(u.FullName), esc(orDash(email)), esc(u.Phone), subscribed, u.Role), profileMenu(u))
	return nil
}

func (b *Bot) cmdEditProfile(ctx context.Context, r *request) error {
	email := ""
	if r.user.Email != nil {
		email = *r.user.Email
	}
	return b.startFlow(ctx, r.chatID, r.userID, flowEditProfile, map[string]string{
		"cur_full_name": r.user.FullName,
		"cur_email":     email,
		"cur_phone":     r.user.Phone,
	})
}

func (b *Bot) cmdDeleteProfile(ctx context.Context, r *request) error {
	return b.startFlow(ctx, r.chatID, r.userID, flowDeleteProfile, nil)
}

func (b *Bot) cmdSubscribe(subscribed bool) func(context.Context, *request) error {
	return func(ctx context.Context, r *request) error {
		if err := b.svc.Users.SetSubscribed(ctx, r.userID, subscribed); err != nil {
			return err
		}
		r.user.IsSubscribed = subscribed
		text := "🔕 You will no longer receive our news."
		if subscribed {
			text = "🔔 You are subscribed to our news."
		}
		b.replyMarkup(r.chatID, text, profileMenu(r.user))
		return nil
	}
}

func (b *Bot) cmdOrders(ctx context.Context, r *request) error {
	orders, err := b.svc.Orders.ListForUser(ctx, r.userID)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		b.reply(r.chatID, "You have no orders yet.")
		return nil
	}
	var sb strings.Builder
	for _, o := range orders {
		sb.WriteString(formatOrder(&o))
		sb.WriteString("\n")
	}
	b.replyHTML(r.chatID, sb.String(), nil)
	return nil
}

func formatOrder(o *models.Order) string {
	var sb strings.Builder
	paid := "not paid"
	if o.IsPaid {
		paid = "paid"
	}
	fmt.Fprintf(&sb, "<b>%s</b> from %s\nStatus: %s, %s\n", esc(o.OrderNumber), o.CreatedAt.Format("02.01.2006"), o.Status, paid)
	for _, item := range o.Items {
		fmt.Fprintf(&sb, "• %s", esc(item.ProductName))
		if item.Size != "" {
			fmt.Fprintf(&sb, " (%s)", esc(item.Size))
		}
		fmt.Fprintf(&sb, " × %d = %s\n", item.Quantity, item.Price.Mul(decimalInt(item.Quantity)).StringFixed(2))
	}
	fmt.Fprintf(&sb, "Total: %s\nDeliver to: %s\nPayment: %s\n", o.Total.StringFixed(2), esc(o.ShippingAddress), esc(o.PaymentMethod))
	return sb.String()
}

func (b *Bot) cmdAddresses(ctx context.Context, r *request) error {
	addresses, err := b.svc.Addresses.List(ctx, r.userID)
	if err != nil {
		return err
	}
	text := "You have no saved addresses."
	if len(addresses) > 0 {
		var sb strings.Builder
		sb.WriteString("Your addresses:\n")
		for i, a := range addresses {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, a.String())
		}
		text = sb.String()
	}
	b.replyMarkup(r.chatID, text, addressKeyboard(addresses))
	return nil
}

func (b *Bot) cmdReviews(ctx context.Context, r *request) error {
	id, err := utils.ParseID(r.args)
	if err != nil {
		b.reply(r.chatID, "Usage: /reviews <product_id>")
		return nil
	}
	reviews, err := b.svc.Reviews.Approved(ctx, id)
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		b.reply(r.chatID, "No reviews yet.")
		return nil
	}
	var sb strings.Builder
	for _, rv := range reviews {
		author := "customer"
		if rv.User != nil {
			author = rv.User.FullName
		}
		fmt.Fprintf(&sb, "%s %s\n%s\n\n", strings.Repeat("⭐", rv.Rating), esc(author), esc(rv.Comment))
	}
	b.replyHTML(r.chatID, sb.String(), nil)
	return nil
}

func (b *Bot) cmdReview(ctx context.Context, r *request) error {
	fields := strings.Fields(r.args)
	if len(fields) < 2 {
		b.reply(r.chatID, "Usage: /review <product_id> <1-5> [comment]")
		return nil
	}
	id, err := utils.ParseID(fields[0])
	if err != nil {
		b.reply(r.chatID, "The product id must be a positive number.")
		return nil
	}
	rating, err := strconv.Atoi(fields[1])
	if err != nil {
		b.reply(r.chatID, "The rating must be a number from 1 to 5.")
		return nil
	}
	comment := strings.TrimSpace(strings.Join(fields[2:], " "))
	if _, err := b.svc.Reviews.Create(ctx, r.userID, id, rating, comment); err != nil {
		return err
	}
	b.reply(r.chatID, "Thank you! Your review will appear after moderation.")
	return nil
}
