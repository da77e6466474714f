package bot

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"kiprej-bot/fsm"
	"kiprej-bot/services"
	"kiprej-bot/storage"
	"kiprej-bot/utils"
)

// telegramFile marks a collected image that is a Telegram file id.
const telegramFile = "tg:"

func parsed(parse func(string) error) checker {
	return func(_ *fsm.Dialog, text string) (string, error) {
		text = strings.TrimSpace(text)
		if err := parse(text); err != nil {
			return "", fsm.Invalid("%s", err.Error())
		}
		return text, nil
	}
}

var (
	amount  = parsed(func(s string) error { _, err := utils.ParseAmount(s); return err })
	percent = parsed(func(s string) error { _, err := utils.ParsePercent(s); return err })
	count   = parsed(func(s string) error { _, err := utils.ParseCount(s); return err })
)

// itemField stores the checked answer on the repeated item in progress.
func itemField(key string, next fsm.State, check checker) fsm.Handler {
	return func(_ context.Context, d *fsm.Dialog, in fsm.Input) (fsm.State, error) {
		v, err := check(d, in.Text)
		if err != nil {
			return "", err
		}
		d.SetItem(key, v)
		return next, nil
	}
}

func mustAmount(s string) decimal.Decimal {
	d, _ := utils.ParseAmount(s)
	return d
}

func (b *Bot) addCategoryFlow() *fsm.Machine {
	return &fsm.Machine{
		Name:  flowAddCategory,
		Start: "name",
		Steps: map[fsm.State]fsm.Step{
			"name": {
				Prompt: prompt("Enter the category name:"),
				On:     onText(field("name", "description", required("Name"))),
			},
			"description": {
				Prompt: prompt("Enter the description, or - to skip:"),
				On:     onText(field("description", fsm.Done, optional)),
			},
		},
		Complete: func(ctx context.Context, d *fsm.Dialog) (string, error) {
			c, err := b.svc.Categories.Create(ctx, d.Get("name"), d.Get("description"))
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("✅ Category %q created (id %d).", c.Name, c.ID), nil
		},
	}
}

func (b *Bot) editCategoryFlow() *fsm.Machine {
	return &fsm.Machine{
		Name:  flowEditCategory,
		Start: "id",
		Steps: map[fsm.State]fsm.Step{
			"id": {
				Prompt: prompt("Enter the id of the category to edit:"),
				On: onText(func(ctx context.Context, d *fsm.Dialog, in fsm.Input) (fsm.State, error) {
					id, err := utils.ParseID(in.Text)
					if err != nil {
						return "", fsm.Invalid("%s", err.Error())
					}
					c, err := b.svc.Categories.Get(ctx, id)
					if errors.Is(err, services.ErrNotFound) {
						return "", fsm.Invalid("There is no category %d.", id)
					}
					if err != nil {
						return "", err
					}
					d.Set("category_id", strconv.FormatUint(uint64(c.ID), 10))
					d.Set("cur_name", c.Name)
					d.Set("cur_description", c.Description)
					return "name", nil
				}),
			},
			"name": {
				Prompt: func(d *fsm.Dialog) string {
					return fmt.Sprintf("Current name: %s\nEnter a new name or . to keep it:%s", esc(d.Get("cur_name")), cancelHint)
				},
				On: onText(field("name", "description", keeping("name", required("Name")))),
			},
			"description": {
				Prompt: func(d *fsm.Dialog) string {
					return fmt.Sprintf("Current description: %s\nEnter a new one, . to keep it or - to clear it:%s", esc(orDash(d.Get("cur_description"))), cancelHint)
				},
				On: onText(field("description", fsm.Done, keeping("description", optional))),
			},
		},
		Complete: func(ctx context.Context, d *fsm.Dialog) (string, error) {
			id, _ := utils.ParseID(d.Get("category_id"))
			c, err := b.svc.Categories.Update(ctx, id, d.Get("name"), d.Get("description"))
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("✅ Category %q updated.", c.Name), nil
		},
	}
}

// addProductFlow expects "categories" (newline separated names) seeded by
// the caller.
func (b *Bot) addProductFlow() *fsm.Machine {
	return &fsm.Machine{
		Name:  flowAddProduct,
		Start: "category",
		Steps: map[fsm.State]fsm.Step{
			"category": {
				Prompt:  prompt("Choose the category:"),
				Options: func(d *fsm.Dialog) []string { return strings.Split(d.Get("categories"), "\n") },
				On: onText(func(ctx context.Context, d *fsm.Dialog, in fsm.Input) (fsm.State, error) {
					c, err := b.svc.Categories.FindByName(ctx, in.Text)
					if errors.Is(err, services.ErrNotFound) {
						return "", fsm.Invalid("There is no category %q.", in.Text)
					}
					if err != nil {
						return "", err
					}
					d.Set("category_id", strconv.FormatUint(uint64(c.ID), 10))
					d.Set("category", c.Name)
					return "name", nil
				}),
			},
			"name": {
				Prompt: prompt("Enter the product name:"),
				On:     onText(field("name", "description", required("Name"))),
			},
			"description": {
				Prompt: prompt("Enter the description, or - to skip:"),
				On:     onText(field("description", "price", optional)),
			},
			"price": {
				Prompt: prompt("Enter the base price:"),
				On:     onText(field("price", "brand", amount)),
			},
			"brand": {
				Prompt: prompt("Enter the brand, or - to skip:"),
				On:     onText(field("brand", "images", optional)),
			},
			"images": {
				Prompt: func(d *fsm.Dialog) string {
					return fmt.Sprintf("Send up to %d photos or image links, then /done. Received: %d.%s",
						services.MaxProductImages, len(d.Files), cancelHint)
				},
				Options: options("/done"),
				On: map[fsm.InputKind]fsm.Handler{
					fsm.Photo: func(_ context.Context, d *fsm.Dialog, in fsm.Input) (fsm.State, error) {
						return addImage(d, telegramFile+in.FileID)
					},
					fsm.Text: func(_ context.Context, d *fsm.Dialog, in fsm.Input) (fsm.State, error) {
						link := strings.TrimSpace(in.Text)
						if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
							return "", fsm.Invalid("Send a photo, an http(s) link or /done.")
						}
						return addImage(d, link)
					},
					fsm.Finish: func(context.Context, *fsm.Dialog, fsm.Input) (fsm.State, error) {
						return "size", nil
					},
				},
			},
			"size": {
				Prompt: func(d *fsm.Dialog) string {
					if len(d.Items) == 0 {
						return "Variant 1. Enter the size:" + cancelHint
					}
					return fmt.Sprintf("Variant %d. Enter the size, or /done to finish:%s", len(d.Items)+1, cancelHint)
				},
				On: map[fsm.InputKind]fsm.Handler{
					fsm.Text: itemField("size", "color", func(_ *fsm.Dialog, text string) (string, error) {
						text = strings.TrimSpace(text)
						if err := services.ValidateVariant(services.NewVariant{Size: text}); err != nil {
							return "", fsm.Invalid("Invalid size: %s", err.Error())
						}
						return text, nil
					}),
					fsm.Finish: func(_ context.Context, d *fsm.Dialog, _ fsm.Input) (fsm.State, error) {
						if len(d.Items) == 0 {
							return "", fsm.Invalid("Add at least one variant.")
						}
						return "confirm", nil
					},
				},
			},
			"color": {
				Prompt: prompt("Enter the color, or - to skip:"),
				On:     onText(itemField("color", "markup", optional)),
			},
			"markup": {
				Prompt: prompt("Enter the markup added to the base price (0 for none):"),
				On:     onText(itemField("markup", "discount", amount)),
			},
			"discount": {
				Prompt: prompt("Enter the discount percent, 0 to 100:"),
				On:     onText(itemField("discount", "stock", percent)),
			},
			"stock": {
				Prompt: prompt("Enter the stock count:"),
				On: onText(func(ctx context.Context, d *fsm.Dialog, in fsm.Input) (fsm.State, error) {
					if _, err := itemField("stock", "size", count)(ctx, d, in); err != nil {
						return "", err
					}
					d.CommitItem()
					return "size", nil
				}),
			},
			"confirm": {
				Prompt:  productSummary,
				Options: options(yes, no),
				On:      onText(confirm),
			},
		},
		Complete: func(ctx context.Context, d *fsm.Dialog) (string, error) {
			in, err := b.newProduct(d)
			if err != nil {
				return "", err
			}
			p, err := b.svc.Products.Create(ctx, in)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("✅ Product %q created (id %d) with %d variants and %d images.",
				p.Name, p.ID, len(p.Variants), len(p.Images)), nil
		},
	}
}

func addImage(d *fsm.Dialog, ref string) (fsm.State, error) {
	if len(d.Files) >= services.MaxProductImages {
		return "", fsm.Invalid("That is already %d images. Send /done.", services.MaxProductImages)
	}
	d.Files = append(d.Files, ref)
	return "images", nil
}

func productSummary(d *fsm.Dialog) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", esc(d.Get("name")))
	fmt.Fprintf(&sb, "Category: %s\n", esc(d.Get("category")))
	fmt.Fprintf(&sb, "Description: %s\n", esc(orDash(d.Get("description"))))
	fmt.Fprintf(&sb, "Brand: %s\n", esc(orDash(d.Get("brand"))))
	fmt.Fprintf(&sb, "Base price: %s\n", esc(d.Get("price")))
	fmt.Fprintf(&sb, "Images: %d\n", len(d.Files))
	for i, v := range d.Items {
		fmt.Fprintf(&sb, "%d) size %s, color %s, markup %s, discount %s%%, stock %s\n",
			i+1, esc(v["size"]), esc(orDash(v["color"])), esc(v["markup"]), esc(v["discount"]), esc(v["stock"]))
	}
	sb.WriteString("\nCreate the product? (yes/no)")
	return sb.String()
}

func (b *Bot) newProduct(d *fsm.Dialog) (services.NewProduct, error) {
	categoryID, err := utils.ParseID(d.Get("category_id"))
	if err != nil {
		return services.NewProduct{}, errors.Wrap(services.ErrInvalidInput, err.Error())
	}
	in := services.NewProduct{
		CategoryID:  categoryID,
		Name:        d.Get("name"),
		Description: d.Get("description"),
		Price:       mustAmount(d.Get("price")),
		Brand:       d.Get("brand"),
	}
	for _, item := range d.Items {
		discount, _ := utils.ParsePercent(item["discount"])
		stock, _ := utils.ParseCount(item["stock"])
		in.Variants = append(in.Variants, services.NewVariant{
			Size:            item["size"],
			Color:           item["color"],
			Markup:          mustAmount(item["markup"]),
			DiscountPercent: discount,
			Stock:           stock,
		})
	}
	for _, ref := range d.Files {
		in.Images = append(in.Images, b.imageSource(ref))
	}
	return in, nil
}

// imageSource opens a collected image: a Telegram photo through the file
// API, anything else as a public link.
func (b *Bot) imageSource(ref string) services.ImageSource {
	if fileID, ok := strings.CutPrefix(ref, telegramFile); ok {
		return services.ImageSource{
			Ext: ".jpg",
			Open: func(ctx context.Context) (io.ReadCloser, string, error) {
				url, err := b.api.GetFileDirectURL(fileID)
				if err != nil {
					return nil, "", errors.Wrap(err, "resolve telegram file")
				}
				resp, err := storage.Download(ctx, b.opts.HTTPClient, url)
				if err != nil {
					return nil, "", err
				}
				contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
				if contentType == "" || contentType == "application/octet-stream" {
					contentType = "image/jpeg"
				}
				return resp.Body, contentType, nil
			},
		}
	}
	return services.ImageSource{
		Open: func(ctx context.Context) (io.ReadCloser, string, error) {
			body, contentType, _, err := storage.FetchImage(ctx, b.opts.HTTPClient, ref)
			return body, contentType, err
		},
	}
}

func (b *Bot) editProductFlow() *fsm.Machine {
	return &fsm.Machine{
		Name:  flowEditProduct,
		Start: "id",
		Steps: map[fsm.State]fsm.Step{
			"id": {
				Prompt: prompt("Enter the id of the product to edit:"),
				On: onText(func(ctx context.Context, d *fsm.Dialog, in fsm.Input) (fsm.State, error) {
					p, err := b.lookupProduct(ctx, in.Text)
					if err != nil {
						return "", err
					}
					d.Set("product_id", strconv.FormatUint(uint64(p.ID), 10))
					d.Set("cur_name", p.Name)
					d.Set("cur_description", p.Description)
					d.Set("cur_price", p.Price.StringFixed(2))
					d.Set("cur_brand", p.Brand)
					return "name", nil
				}),
			},
			"name": {
				Prompt: currentValue("name", "name"),
				On:     onText(field("name", "description", keeping("name", required("Name")))),
			},
			"description": {
				Prompt: currentValue("description", "description"),
				On:     onText(field("description", "price", keeping("description", optional))),
			},
			"price": {
				Prompt: currentValue("price", "base price"),
				On:     onText(field("price", "brand", keeping("price", amount))),
			},
			"brand": {
				Prompt: currentValue("brand", "brand"),
				On:     onText(field("brand", "confirm", keeping("brand", optional))),
			},
			"confirm": {
				Prompt: func(d *fsm.Dialog) string {
					return fmt.Sprintf("<b>%s</b>\nDescription: %s\nBase price: %s\nBrand: %s\n\nSave? (yes/no)",
						esc(d.Get("name")), esc(orDash(d.Get("description"))), esc(d.Get("price")), esc(orDash(d.Get("brand"))))
				},
				Options: options(yes, no),
				On:      onText(confirm),
			},
		},
		Complete: func(ctx context.Context, d *fsm.Dialog) (string, error) {
			id, _ := utils.ParseID(d.Get("product_id"))
			name, description, brand := d.Get("name"), d.Get("description"), d.Get("brand")
			price := mustAmount(d.Get("price"))
			p, err := b.svc.Products.Update(ctx, id, services.ProductPatch{
				Name:        &name,
				Description: &description,
				Price:       &price,
				Brand:       &brand,
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("✅ Product %q updated.", p.Name), nil
		},
	}
}

func currentValue(key, label string) func(*fsm.Dialog) string {
	return func(d *fsm.Dialog) string {
		hint := " or . to keep it"
		if key == "description" || key == "brand" {
			hint = ", . to keep it or - to clear it"
		}
		return fmt.Sprintf("Current %s: %s\nEnter a new %s%s:%s", label, esc(orDash(d.Get("cur_"+key))), label, hint, cancelHint)
	}
}

func (b *Bot) deleteProductFlow() *fsm.Machine {
	return &fsm.Machine{
		Name:  flowDeleteProduct,
		Start: "id",
		Steps: map[fsm.State]fsm.Step{
			"id": {
				Prompt: prompt("Enter the id of the product to delete:"),
				On: onText(func(ctx context.Context, d *fsm.Dialog, in fsm.Input) (fsm.State, error) {
					p, err := b.lookupProduct(ctx, in.Text)
					if err != nil {
						return "", err
					}
					d.Set("product_id", strconv.FormatUint(uint64(p.ID), 10))
					d.Set("name", p.Name)
					return "confirm", nil
				}),
			},
			"confirm": {
				Prompt: func(d *fsm.Dialog) string {
					return fmt.Sprintf("Delete <b>%s</b> with its variants, images and reviews? (yes/no)", esc(d.Get("name")))
				},
				Options: options(yes, no),
				On:      onText(confirm),
			},
		},
		Complete: func(ctx context.Context, d *fsm.Dialog) (string, error) {
			id, _ := utils.ParseID(d.Get("product_id"))
			res, err := b.svc.Products.Delete(ctx, id)
			if err != nil {
				return "", err
			}
			text := fmt.Sprintf("🗑 Product %q deleted. Image files removed: %d.", res.Product.Name, res.FilesDeleted)
			if res.FilesFailed > 0 {
				text += fmt.Sprintf(" Could not remove %d, see the logs.", res.FilesFailed)
			}
			return text, nil
		},
	}
}
