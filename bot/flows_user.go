package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"kiprej-bot/fsm"
	"kiprej-bot/services"
	"kiprej-bot/utils"
)

func fullName(_ *fsm.Dialog, text string) (string, error) {
	text = strings.Join(strings.Fields(text), " ")
	if !utils.ValidFullName(text) {
		return "", fsm.Invalid("Please enter your first and last name.")
	}
	return text, nil
}

func email(_ *fsm.Dialog, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == skipValue {
		return "", nil
	}
	if !utils.ValidEmail(text) {
		return "", fsm.Invalid("That does not look like an email address.")
	}
	return text, nil
}

func phone(_ *fsm.Dialog, text string) (string, error) {
	text = strings.TrimSpace(text)
	if !utils.ValidPhone(text) {
		return "", fsm.Invalid("Please enter a phone number like +79991234567.")
	}
	return text, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (b *Bot) registerFlow() *fsm.Machine {
	return &fsm.Machine{
		Name:  flowRegister,
		Start: "name",
		Steps: map[fsm.State]fsm.Step{
			"name": {
				Prompt: prompt("Enter your full name (first and last):"),
				On:     onText(field("full_name", "email", fullName)),
			},
			"email": {
				Prompt: prompt("Enter your email, or - to skip:"),
				On:     onText(field("email", "phone", email)),
			},
			"phone": {
				Prompt: prompt("Enter your phone number:"),
				On:     onText(field("phone", fsm.Done, phone)),
			},
		},
		Complete: func(ctx context.Context, d *fsm.Dialog) (string, error) {
			user, err := b.svc.Users.Register(ctx, services.Registration{
				TelegramID: d.UserID,
				FullName:   d.Get("full_name"),
				Email:      optionalString(d.Get("email")),
				Phone:      d.Get("phone"),
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("✅ Registration complete. Welcome, %s!", user.FullName), nil
		},
	}
}

func (b *Bot) editProfileFlow() *fsm.Machine {
	return &fsm.Machine{
		Name:  flowEditProfile,
		Start: "name",
		Steps: map[fsm.State]fsm.Step{
			"name": {
				Prompt: func(d *fsm.Dialog) string {
					return fmt.Sprintf("Current name: %s\nEnter a new full name or . to keep it:%s", esc(d.Get("cur_full_name")), cancelHint)
				},
				On: onText(field("full_name", "email", keeping("full_name", fullName))),
			},
			"email": {
				Prompt: func(d *fsm.Dialog) string {
					return fmt.Sprintf("Current email: %s\nEnter a new email, . to keep it or - to remove it:%s", esc(orDash(d.Get("cur_email"))), cancelHint)
				},
				On: onText(field("email", "phone", keeping("email", email))),
			},
			"phone": {
				Prompt: func(d *fsm.Dialog) string {
					return fmt.Sprintf("Current phone: %s\nEnter a new phone or . to keep it:%s", esc(d.Get("cur_phone")), cancelHint)
				},
				On: onText(field("phone", "confirm", keeping("phone", phone))),
			},
			"confirm": {
				Prompt: func(d *fsm.Dialog) string {
					return fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s\n\nSave? (yes/no)",
						esc(d.Get("full_name")), esc(orDash(d.Get("email"))), esc(d.Get("phone")))
				},
				Options: options(yes, no),
				On:      onText(confirm),
			},
		},
		Complete: func(ctx context.Context, d *fsm.Dialog) (string, error) {
			_, err := b.svc.Users.UpdateProfile(ctx, d.UserID, services.ProfileUpdate{
				FullName: d.Get("full_name"),
				Email:    optionalString(d.Get("email")),
				Phone:    d.Get("phone"),
			})
			if err != nil {
				return "", err
			}
			return "✅ Profile updated.", nil
		},
	}
}

func (b *Bot) deleteProfileFlow() *fsm.Machine {
	return &fsm.Machine{
		Name:  flowDeleteProfile,
		Start: "confirm",
		Steps: map[fsm.State]fsm.Step{
			"confirm": {
				Prompt: prompt("This removes your profile, cart and addresses. Your orders are kept.\nType delete to confirm."),
				On: onText(func(_ context.Context, _ *fsm.Dialog, in fsm.Input) (fsm.State, error) {
					if strings.ToLower(strings.TrimSpace(in.Text)) != "delete" {
						return "", fsm.ErrAborted
					}
					return fsm.Done, nil
				}),
			},
		},
		Complete: func(ctx context.Context, d *fsm.Dialog) (string, error) {
			if err := b.svc.Users.Delete(ctx, d.UserID); err != nil {
				return "", err
			}
			return "Your profile has been deleted.", nil
		},
	}
}

func (b *Bot) addAddressFlow() *fsm.Machine {
	return &fsm.Machine{
		Name:  flowAddAddress,
		Start: "line",
		Steps: map[fsm.State]fsm.Step{
			"line": {
				Prompt: prompt("Enter the street, house and flat:"),
				On:     onText(field("line", "city", required("Address"))),
			},
			"city": {
				Prompt: prompt("Enter the city:"),
				On:     onText(field("city", "postal", required("City"))),
			},
			"postal": {
				Prompt: prompt("Enter the postal code, or - to skip:"),
				On:     onText(field("postal", "country", optional)),
			},
			"country": {
				Prompt: prompt("Enter the country:"),
				On:     onText(field("country", fsm.Done, required("Country"))),
			},
		},
		Complete: func(ctx context.Context, d *fsm.Dialog) (string, error) {
			addr, err := b.svc.Addresses.Add(ctx, d.UserID, services.NewAddress{
				AddressLine: d.Get("line"),
				City:        d.Get("city"),
				PostalCode:  d.Get("postal"),
				Country:     d.Get("country"),
			})
			if err != nil {
				return "", err
			}
			return "✅ Address saved: " + addr.String(), nil
		},
	}
}

// checkoutFlow expects "total" and "addr_1".."addr_n" seeded by the caller.
func (b *Bot) checkoutFlow() *fsm.Machine {
	return &fsm.Machine{
		Name:  flowCheckout,
		Start: "address",
		Steps: map[fsm.State]fsm.Step{
			"address": {
				Prompt: func(d *fsm.Dialog) string {
					var sb strings.Builder
					fmt.Fprintf(&sb, "Order total: %s\n\n", esc(d.Get("total")))
					for i := 1; d.Get(addrKey(i)) != ""; i++ {
						fmt.Fprintf(&sb, "%d. %s\n", i, esc(d.Get(addrKey(i))))
					}
					sb.WriteString("\nSend the number of a saved address or type the delivery address:")
					sb.WriteString(cancelHint)
					return sb.String()
				},
				On: onText(field("address", "payment", shippingAddress)),
			},
			"payment": {
				Prompt:  prompt("Choose the payment method:"),
				Options: options(services.PaymentMethods...),
				On: onText(field("payment", "confirm", func(_ *fsm.Dialog, text string) (string, error) {
					text = strings.ToLower(strings.TrimSpace(text))
					for _, m := range services.PaymentMethods {
						if m == text {
							return text, nil
						}
					}
					return "", fsm.Invalid("Please choose %s.", strings.Join(services.PaymentMethods, " or "))
				})),
			},
			"confirm": {
				Prompt: func(d *fsm.Dialog) string {
					return fmt.Sprintf("Total: %s\nDeliver to: %s\nPayment: %s\n\nPlace the order? (yes/no)",
						esc(d.Get("total")), esc(d.Get("address")), esc(d.Get("payment")))
				},
				Options: options(yes, no),
				On:      onText(confirm),
			},
		},
		Complete: func(ctx context.Context, d *fsm.Dialog) (string, error) {
			order, err := b.svc.Orders.Checkout(ctx, services.Checkout{
				TelegramID:      d.UserID,
				ShippingAddress: d.Get("address"),
				PaymentMethod:   d.Get("payment"),
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("✅ Order %s placed. Total %s. We will keep you posted on its status.",
				order.OrderNumber, order.Total.StringFixed(2)), nil
		},
	}
}

func addrKey(i int) string {
	return "addr_" + strconv.Itoa(i)
}

func shippingAddress(d *fsm.Dialog, text string) (string, error) {
	text = strings.TrimSpace(text)
	if n, err := strconv.Atoi(text); err == nil {
		if saved := d.Get(addrKey(n)); saved != "" {
			return saved, nil
		}
		return "", fsm.Invalid("There is no saved address number %d.", n)
	}
	if len([]rune(text)) < 5 {
		return "", fsm.Invalid("The address is too short.")
	}
	return text, nil
}
