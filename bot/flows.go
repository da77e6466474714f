package bot

import (
	"context"
	"html"
	"strings"

	"kiprej-bot/fsm"
)

// Flow names.
const (
	flowRegister      = "register"
	flowEditProfile   = "edit_profile"
	flowDeleteProfile = "delete_profile"
	flowAddAddress    = "add_address"
	flowCheckout      = "checkout"
	flowAddCategory   = "add_category"
	flowEditCategory  = "edit_category"
	flowAddProduct    = "add_product"
	flowEditProduct   = "edit_product"
	flowDeleteProduct = "delete_product"
)

// Answers with a fixed meaning inside dialogues.
const (
	keepValue = "."
	skipValue = "-"
	yes       = "yes"
	no        = "no"
)

const cancelHint = "\n\n/cancel to stop."

func (b *Bot) buildFlows() map[string]*fsm.Machine {
	machines := []*fsm.Machine{
		b.registerFlow(),
		b.editProfileFlow(),
		b.deleteProfileFlow(),
		b.addAddressFlow(),
		b.checkoutFlow(),
		b.addCategoryFlow(),
		b.editCategoryFlow(),
		b.addProductFlow(),
		b.editProductFlow(),
		b.deleteProductFlow(),
	}
	flows := make(map[string]*fsm.Machine, len(machines))
	for _, m := range machines {
		flows[m.Name] = m
	}
	return flows
}

func prompt(text string) func(*fsm.Dialog) string {
	return func(*fsm.Dialog) string { return text + cancelHint }
}

func options(values ...string) func(*fsm.Dialog) []string {
	return func(*fsm.Dialog) []string { return values }
}

func onText(h fsm.Handler) map[fsm.InputKind]fsm.Handler {
	return map[fsm.InputKind]fsm.Handler{fsm.Text: h}
}

// checker normalises one answer or rejects it with fsm.Invalid.
type checker func(d *fsm.Dialog, text string) (string, error)

// field stores the checked answer under key and moves to next.
func field(key string, next fsm.State, check checker) fsm.Handler {
	return func(_ context.Context, d *fsm.Dialog, in fsm.Input) (fsm.State, error) {
		v, err := check(d, in.Text)
		if err != nil {
			return "", err
		}
		d.Set(key, v)
		return next, nil
	}
}

func required(what string) checker {
	return func(_ *fsm.Dialog, text string) (string, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return "", fsm.Invalid("%s is required.", what)
		}
		return text, nil
	}
}

// optional maps "-" to an empty value.
func optional(_ *fsm.Dialog, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == skipValue {
		return "", nil
	}
	return text, nil
}

// keeping lets "." stand for the current value stored under "cur_"+key.
func keeping(key string, check checker) checker {
	return func(d *fsm.Dialog, text string) (string, error) {
		if strings.TrimSpace(text) == keepValue {
			return d.Get("cur_" + key), nil
		}
		return check(d, text)
	}
}

// confirm finishes on "yes" and aborts on "no".
func confirm(_ context.Context, _ *fsm.Dialog, in fsm.Input) (fsm.State, error) {
	switch strings.ToLower(strings.TrimSpace(in.Text)) {
	case yes:
		return fsm.Done, nil
	case no:
		return "", fsm.ErrAborted
	default:
		return "", fsm.Invalid("Please answer yes or no.")
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}

// orDash shows empty values as "-".
func orDash(s string) string {
	if s == "" {
		return skipValue
	}
	return s
}
