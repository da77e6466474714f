package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kiprej-bot/models"
	"kiprej-bot/services"
)

type request struct {
	chatID int64
	userID int64
	args   string
	user   *models.User
}

// command is one entry of the dispatch table. A non-empty role is checked
// with services.Authorize before run is called.
type command struct {
	role models.Role
	run  func(ctx context.Context, r *request) error
}

func (b *Bot) buildCommands() (map[string]command, map[string]string) {
	public := func(run func(context.Context, *request) error) command { return command{run: run} }
	user := func(run func(context.Context, *request) error) command {
		return command{role: models.RoleUser, run: run}
	}
	admin := func(run func(context.Context, *request) error) command {
		return command{role: models.RoleAdmin, run: run}
	}
	superuser := func(run func(context.Context, *request) error) command {
		return command{role: models.RoleSuperuser, run: run}
	}

	commands := map[string]command{
		"start":          public(b.cmdStart),
		"menu":           public(b.cmdStart),
		"help":           public(b.cmdHelp),
		"catalog":        public(b.cmdCatalog),
		"contacts":       public(b.cmdContacts),
		"delivery":       public(b.cmdDelivery),
		"register":       public(b.cmdRegister),
		"reviews":        public(b.cmdReviews),
		"cart":           user(b.cmdCart),
		"orders":         user(b.cmdOrders),
		"addresses":      user(b.cmdAddresses),
		"profile":        user(b.cmdProfile),
		"show_profile":   user(b.cmdShowProfile),
		"edit_profile":   user(b.cmdEditProfile),
		"delete_profile": user(b.cmdDeleteProfile),
		"subscribe":      user(b.cmdSubscribe(true)),
		"unsubscribe":    user(b.cmdSubscribe(false)),
		"review":         user(b.cmdReview),

		"admin_menu":      admin(b.cmdAdminMenu),
		"categories_menu": admin(b.cmdCategoriesMenu),
		"products_menu":   admin(b.cmdProductsMenu),
		"add_category":    admin(b.cmdAddCategory),
		"edit_category":   admin(b.cmdEditCategory),
		"list_categories": admin(b.cmdListCategories),
		"delete_category": admin(b.cmdDeleteCategory),
		"add_product":     admin(b.cmdAddProduct),
		"edit_product":    admin(b.cmdEditProduct),
		"delete_product":  admin(b.cmdDeleteProduct),
		"all_products":    admin(b.cmdAllProducts),
		"list_users":      admin(b.cmdListUsers),
		"user":            admin(b.cmdUserDetails),
		"list_orders":     admin(b.cmdListOrders),
		"order":           admin(b.cmdOrder),
		"update_order":    admin(b.cmdUpdateOrder),
		"popular":         admin(b.cmdPopular),
		"pending_reviews": admin(b.cmdPendingReviews),
		"approve_review":  admin(b.cmdApproveReview),
		"broadcast":       admin(b.cmdBroadcast),
		"api_token":       admin(b.cmdAPIToken),

		"set_role": superuser(b.cmdSetRole),
	}

	buttons := map[string]string{
		btnCatalog:      "catalog",
		btnCart:         "cart",
		btnContacts:     "contacts",
		btnDelivery:     "delivery",
		btnRegister:     "register",
		btnOrders:       "orders",
		btnAddresses:    "addresses",
		btnProfile:      "profile",
		btnMainMenu:     "menu",
		btnEditProfile:  "edit_profile",
		btnDeleteProf:   "delete_profile",
		btnShowProfile:  "show_profile",
		btnSubscribe:    "subscribe",
		btnUnsubscribe:  "unsubscribe",
		btnAdminMenu:    "admin_menu",
		btnAdminBack:    "admin_menu",
		btnCategories:   "categories_menu",
		btnProducts:     "products_menu",
		btnAllOrders:    "list_orders",
		btnUsers:        "list_users",
		btnPopular:      "popular",
		btnPendingRevs:  "pending_reviews",
		btnBroadcast:    "broadcast",
		btnAddCategory:  "add_category",
		btnEditCategory: "edit_category",
		btnListCategory: "list_categories",
		btnAddProduct:   "add_product",
		btnEditProduct:  "edit_product",
		btnDelProduct:   "delete_product",
		btnExport:       "all_products",
	}
	return commands, buttons
}

// dispatch routes a message outside any dialogue to its command.
func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) error {
	var name, args string
	if msg.IsCommand() {
		name, args = msg.Command(), strings.TrimSpace(msg.CommandArguments())
	} else {
		name = b.buttons[strings.TrimSpace(msg.Text)]
	}

	cmd, ok := b.commands[name]
	if !ok {
		b.reply(msg.Chat.ID, "I did not understand that. Use the menu below or /help.")
		return nil
	}

	r := &request{chatID: msg.Chat.ID, userID: msg.From.ID, args: args}
	user, err := b.user(ctx, r.userID)
	if err != nil {
		return err
	}
	r.user = user

	if cmd.role != "" && services.Authorize(user, cmd.role) == services.Deny {
		if user == nil {
			b.replyMarkup(r.chatID, "Please register first.", mainMenu(nil))
			return nil
		}
		return services.Require(user, cmd.role)
	}
	return cmd.run(ctx, r)
}
