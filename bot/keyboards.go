package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kiprej-bot/catalog"
	"kiprej-bot/models"
	"kiprej-bot/services"
)

// Reply keyboard buttons.
const (
	btnCatalog      = "🏬 Catalog"
	btnCart         = "🛒 Cart"
	btnContacts     = "📞 Contacts"
	btnDelivery     = "🚚 Delivery and payment"
	btnRegister     = "📝 Registration"
	btnOrders       = "🛍 My orders"
	btnAddresses    = "🏠 My addresses"
	btnProfile      = "👤 Profile"
	btnAdminMenu    = "🔧 Admin menu"
	btnMainMenu     = "🔙 Main menu"
	btnEditProfile  = "✏️ Edit profile"
	btnDeleteProf   = "🗑 Delete profile"
	btnShowProfile  = "👓 View profile"
	btnSubscribe    = "🔔 Subscribe"
	btnUnsubscribe  = "🔕 Unsubscribe"
	btnCategories   = "📂 Categories"
	btnProducts     = "📦 Products"
	btnAllOrders    = "📋 Orders"
	btnUsers        = "👥 Users"
	btnPopular      = "📈 Popular"
	btnPendingRevs  = "💬 Pending reviews"
	btnBroadcast    = "📣 Broadcast"
	btnAddCategory  = "➕ Add category"
	btnEditCategory = "✏️ Edit category"
	btnListCategory = "📃 List categories"
	btnAddProduct   = "➕ Add product"
	btnEditProduct  = "✏️ Edit product"
	btnDelProduct   = "🗑 Delete product"
	btnExport       = "📊 All products"
	btnAdminBack    = "🔙 Admin menu"
)

func replyKeyboard(rows ...[]string) tgbotapi.ReplyKeyboardMarkup {
	keyboard := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, text := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(text))
		}
		keyboard = append(keyboard, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	markup := tgbotapi.NewReplyKeyboard(keyboard...)
	markup.ResizeKeyboard = true
	return markup
}

func mainMenu(user *models.User) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]string{
		{btnCatalog, btnCart},
		{btnContacts, btnDelivery},
		{btnOrders, btnAddresses},
	}
	if user == nil {
		rows = append(rows, []string{btnRegister})
	} else {
		rows = append(rows, []string{btnProfile})
	}
	if user.IsAdmin() {
		rows = append(rows, []string{btnAdminMenu})
	}
	return replyKeyboard(rows...)
}

func profileMenu(user *models.User) tgbotapi.ReplyKeyboardMarkup {
	subscription := btnSubscribe
	if user != nil && user.IsSubscribed {
		subscription = btnUnsubscribe
	}
	return replyKeyboard(
		[]string{btnEditProfile, btnDeleteProf},
		[]string{btnShowProfile, subscription},
		[]string{btnMainMenu},
	)
}

var adminMenu = replyKeyboard(
	[]string{btnCategories, btnProducts},
	[]string{btnAllOrders, btnUsers},
	[]string{btnPopular, btnPendingRevs},
	[]string{btnBroadcast, btnMainMenu},
)

var categoryMenu = replyKeyboard(
	[]string{btnAddCategory, btnEditCategory},
	[]string{btnListCategory, btnAdminBack},
)

var productMenu = replyKeyboard(
	[]string{btnAddProduct, btnEditProduct},
	[]string{btnDelProduct, btnExport},
	[]string{btnAdminBack},
)

func optionsKeyboard(options []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]string, 0, len(options))
	for _, o := range options {
		rows = append(rows, []string{o})
	}
	markup := replyKeyboard(rows...)
	markup.OneTimeKeyboard = true
	return markup
}

func dataButton(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func categoryKeyboard(categories []models.Category) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(dataButton("All products", CatalogAction{Action: actCategory, Page: 1}.Encode())),
	}
	for _, c := range categories {
		data := CatalogAction{Action: actCategory, CategoryID: c.ID, Page: 1}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(dataButton(c.Name, data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func sizeKeyboard(categoryID uint, sizes []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(sizes)+1)
	for _, size := range sizes {
		data := CatalogAction{Action: actShow, CategoryID: categoryID, Size: size, Page: 1}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(dataButton("Size: "+size, data)))
	}
	anySize := CatalogAction{Action: actShow, CategoryID: categoryID, Page: 1}.Encode()
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(dataButton("Any size", anySize)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// pageKeyboard offers Back past page 1 and Forward while pages remain.
func pageKeyboard(q CatalogAction, page services.Page) (tgbotapi.InlineKeyboardMarkup, bool) {
	var row []tgbotapi.InlineKeyboardButton
	if page.HasPrev() {
		prev := q
		prev.Page = page.Number - 1
		row = append(row, dataButton("⬅️ Back", prev.Encode()))
	}
	if page.HasNext() {
		next := q
		next.Page = page.Number + 1
		row = append(row, dataButton("Forward ➡️", next.Encode()))
	}
	if len(row) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(row), true
}

// cardKeyboard builds photo navigation, size choice and, once a size is
// chosen, quantity and add-to-cart buttons.
func cardKeyboard(p *models.Product, image int, size string, qty int) tgbotapi.InlineKeyboardMarkup {
	state := CardAction{ProductID: p.ID, Image: image, Size: size, Quantity: qty}
	var rows [][]tgbotapi.InlineKeyboardButton

	if n := len(p.Images); n > 1 {
		prev, next := state, state
		prev.Action, prev.Image = actPhoto, (image-1+n)%n
		next.Action, next.Image = actPhoto, (image+1)%n
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			dataButton("⬅️", prev.Encode()),
			dataButton("➡️", next.Encode()),
		))
	}

	var sizeRow []tgbotapi.InlineKeyboardButton
	for _, s := range inStockSizes(p) {
		choice := state
		choice.Action, choice.Size, choice.Quantity = actSize, s, 1
		label := s
		if s == size {
			label = "✅ " + s
		}
		sizeRow = append(sizeRow, dataButton(label, choice.Encode()))
	}
	if len(sizeRow) > 0 {
		rows = append(rows, sizeRow)
	}

	if size != "" {
		less, more, add := state, state, state
		less.Action, less.Quantity = actQty, max(1, qty-1)
		more.Action, more.Quantity = actQty, qty+1
		add.Action = actAdd
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				dataButton("➖", less.Encode()),
				dataButton(fmt.Sprintf("%d", qty), noop),
				dataButton("➕", more.Encode()),
			),
			tgbotapi.NewInlineKeyboardRow(dataButton("🛒 Add to cart", add.Encode())),
		)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func inStockSizes(p *models.Product) []string {
	return catalog.AvailableSizes([]models.Product{*p})
}

func cartKeyboard(items []models.CartItem) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+1)
	for i, item := range items {
		data := RefAction{Prefix: prefixCart, Action: "rm", ID: item.ID}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(dataButton(fmt.Sprintf("❌ Remove #%d", i+1), data)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		dataButton("🧹 Clear", RefAction{Prefix: prefixCart, Action: "clear"}.Encode()),
		dataButton("✅ Checkout", RefAction{Prefix: prefixCart, Action: "checkout"}.Encode()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func addressKeyboard(addresses []models.Address) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(addresses)+1)
	for i, a := range addresses {
		data := RefAction{Prefix: prefixAddress, Action: "del", ID: a.ID}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(dataButton(fmt.Sprintf("🗑 Delete #%d", i+1), data)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		dataButton("➕ Add address", RefAction{Prefix: prefixAddress, Action: "add"}.Encode()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
