package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiprej-bot/models"
	"kiprej-bot/notifications"
)

func TestStartGreetsByRegistration(t *testing.T) {
	h := newHarness(t)
	h.say(1, "/start")
	assert.Equal(t, "Welcome to Kiprej!", h.api.lastText(t))

	h.register(t, 2, models.RoleUser)
	h.say(2, "/start")
	assert.Equal(t, "Welcome back, Ivan Petrov!", h.api.lastText(t))
}

func TestMenuButtonsDispatch(t *testing.T) {
	h := newHarness(t)
	h.say(1, btnContacts)
	assert.Equal(t, "Call us", h.api.lastText(t))

	h.say(1, btnDelivery)
	assert.Equal(t, "We ship daily", h.api.lastText(t))

	h.say(1, "what is this")
	assert.Contains(t, h.api.lastText(t), "I did not understand")
}

func TestRegistrationDialog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.say(42, btnRegister)
	assert.Contains(t, h.api.lastText(t), "Enter your full name")

	h.say(42, "Ivan")
	assert.Contains(t, h.api.lastText(t), "Please enter your first and last name.")
	assert.Equal(t, "name", string(h.activeDialog(t, 42).State))

	h.say(42, "Ivan   Petrov")
	assert.Contains(t, h.api.lastText(t), "Enter your email")

	h.say(42, "-")
	assert.Contains(t, h.api.lastText(t), "Enter your phone number")

	h.say(42, "+79991234567")
	assert.Equal(t, "✅ Registration complete. Welcome, Ivan Petrov!", h.api.lastText(t))
	assert.Nil(t, h.activeDialog(t, 42))

	user, err := h.svc.Users.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Ivan Petrov", user.FullName)
	assert.Nil(t, user.Email)

	h.say(42, "/register")
	assert.Equal(t, "You are already registered.", h.api.lastText(t))
}

func TestCancelStopsDialog(t *testing.T) {
	h := newHarness(t)
	h.say(42, "/register")
	require.NotNil(t, h.activeDialog(t, 42))

	h.say(42, "/cancel")
	assert.Equal(t, "Cancelled.", h.api.lastText(t))
	assert.Nil(t, h.activeDialog(t, 42))
}

func TestPrivilegedCommandsAreChecked(t *testing.T) {
	h := newHarness(t)

	h.say(1, "/cart")
	assert.Equal(t, "Please register first.", h.api.lastText(t))

	h.register(t, 2, models.RoleUser)
	h.say(2, "/list_users")
	assert.Equal(t, "❌ You don't have access to this.", h.api.lastText(t))

	h.register(t, 3, models.RoleAdmin)
	h.say(3, "/set_role 2 admin")
	assert.Equal(t, "❌ You don't have access to this.", h.api.lastText(t))

	h.say(3, "/list_users")
	assert.Contains(t, h.api.lastText(t), "Ivan Petrov")
}

func TestSetRoleBySuperuser(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1, models.RoleSuperuser)
	h.register(t, 2, models.RoleUser)

	h.say(1, "/set_role 2 admin")
	user, err := h.svc.Users.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestAddToCartCallback(t *testing.T) {
	h := newHarness(t)
	p := h.product(t)
	add := CardAction{Action: actAdd, ProductID: p.ID, Size: "M", Quantity: 2}.Encode()

	h.press(1, add)
	answers := h.api.answers()
	require.NotEmpty(t, answers)
	assert.True(t, answers[len(answers)-1].ShowAlert)
	assert.Contains(t, answers[len(answers)-1].Text, "register first")

	h.register(t, 2, models.RoleUser)
	h.press(2, add)
	h.press(2, add)
	answers = h.api.answers()
	assert.Equal(t, "🛒 Added. In cart: 4", answers[len(answers)-1].Text)

	missing := CardAction{Action: actAdd, ProductID: p.ID, Size: "XL", Quantity: 1}.Encode()
	h.press(2, missing)
	answers = h.api.answers()
	assert.Equal(t, "This size is not available.", answers[len(answers)-1].Text)

	cart, err := h.svc.Cart.Get(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.True(t, cart.Items[0].PriceAtTime.Equal(decimalInt(1080)))
}

func TestCatalogShowsCardsAndRecordsViews(t *testing.T) {
	h := newHarness(t)
	p := h.product(t)

	h.press(7, CatalogAction{Action: actShow, Size: "M", Page: 1}.Encode())

	found := false
	for _, c := range h.api.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ParseMode == tgbotapi.ModeHTML {
			assert.Contains(t, m.Text, "Wool coat")
			kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
			require.True(t, ok)
			assert.NotEmpty(t, kb.InlineKeyboard)
			found = true
		}
	}
	assert.True(t, found, "product card was not sent")

	popular, err := h.svc.Analytics.Popular(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, popular, 1)
	assert.Equal(t, p.ID, popular[0].Product.ID)

	h.press(7, CatalogAction{Action: actShow, Size: "XXL", Page: 1}.Encode())
	assert.Equal(t, "No products match your choice.", h.api.lastText(t))
}

func TestCheckoutDialog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t)
	h.register(t, 42, models.RoleUser)
	h.press(42, CardAction{Action: actAdd, ProductID: p.ID, Size: "M", Quantity: 1}.Encode())

	h.press(42, RefAction{Prefix: prefixCart, Action: "checkout"}.Encode())
	assert.Contains(t, h.api.lastText(t), "Order total: 1080.00")

	h.say(42, "1")
	assert.Contains(t, h.api.lastText(t), "There is no saved address number 1.")

	h.say(42, "Lenina 1, Moscow")
	assert.Contains(t, h.api.lastText(t), "Choose the payment method")

	h.say(42, "Card")
	assert.Contains(t, h.api.lastText(t), "Place the order?")

	h.say(42, "yes")
	assert.Contains(t, h.api.lastText(t), "placed. Total 1080.00")
	assert.Nil(t, h.activeDialog(t, 42))

	orders, err := h.svc.Orders.ListForUser(ctx, 42)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Lenina 1, Moscow", orders[0].ShippingAddress)
	assert.Equal(t, "card", orders[0].PaymentMethod)

	cart, err := h.svc.Cart.Get(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckoutAnsweredNoIsCancelled(t *testing.T) {
	h := newHarness(t)
	p := h.product(t)
	h.register(t, 42, models.RoleUser)
	h.press(42, CardAction{Action: actAdd, ProductID: p.ID, Size: "M", Quantity: 1}.Encode())
	h.press(42, RefAction{Prefix: prefixCart, Action: "checkout"}.Encode())
	h.say(42, "Lenina 1, Moscow")
	h.say(42, "cash")
	h.say(42, "no")

	assert.Equal(t, "Cancelled.", h.api.lastText(t))
	assert.Nil(t, h.activeDialog(t, 42))
	orders, err := h.svc.Orders.ListForUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestAddCategoryDialog(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1, models.RoleAdmin)

	h.say(1, "/add_category")
	assert.Contains(t, h.api.lastText(t), "Enter the category name")
	h.say(1, "Coats")
	assert.Contains(t, h.api.lastText(t), "Enter the description")
	h.say(1, "-")
	assert.Contains(t, h.api.lastText(t), "✅ Category \"Coats\" created")
	assert.Nil(t, h.activeDialog(t, 1))

	c, err := h.svc.Categories.FindByName(context.Background(), "coats")
	require.NoError(t, err)
	assert.Equal(t, "Coats", c.Name)
}

func TestSendTextUsesHTML(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.bot.SendText(context.Background(), 5, "<b>hi</b>"))
	msg, ok := h.api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Equal(t, int64(5), msg.ChatID)
}

func TestSendTextRetriesFloodWait(t *testing.T) {
	h := newHarness(t)
	h.bot.sendRetry.Backoff = func(int) time.Duration { return time.Millisecond }
	flood := &tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 1"}
	h.api.sendErrs = []error{flood, flood}

	require.NoError(t, h.bot.SendText(context.Background(), 5, "hi"))
	assert.Len(t, h.api.sent, 1)
}

func TestSendTextDoesNotRetryOtherErrors(t *testing.T) {
	h := newHarness(t)
	h.bot.sendRetry.Backoff = func(int) time.Duration { return time.Millisecond }
	blocked := &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
	h.api.sendErrs = []error{blocked, errors.New("unused")}

	err := h.bot.SendText(context.Background(), 5, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
	assert.Len(t, h.api.sendErrs, 1)
	assert.Empty(t, h.api.sent)
}

func TestCallbackWithoutSenderIsIgnored(t *testing.T) {
	h := newHarness(t)
	assert.NotPanics(t, func() {
		h.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "x", Data: "p:add:1:0:M:1"}})
	})
}

type busyBroadcaster struct{}

func (busyBroadcaster) Run(context.Context) (notifications.Report, error) {
	return notifications.Report{}, notifications.ErrBroadcastRunning
}

func TestBroadcastWhileRunning(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1, models.RoleAdmin)
	h.bot.SetBroadcaster(busyBroadcaster{})

	h.say(1, "/broadcast")
	assert.Eventually(t, func() bool {
		return h.api.lastText(t) == "A broadcast is already running."
	}, time.Second, 5*time.Millisecond)
}
