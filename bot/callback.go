package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Telegram rejects callback data longer than this.
const maxCallbackData = 64

const (
	prefixCatalog = "c"
	prefixCard    = "p"
	prefixCart    = "k"
	prefixAddress = "a"
	noop          = "noop"
)

// Catalog callback actions.
const (
	actCategory = "cat"
	actShow     = "show"
)

// Card callback actions.
const (
	actPhoto = "photo"
	actSize  = "size"
	actQty   = "qty"
	actAdd   = "add"
)

var errBadCallback = errors.New("malformed callback data")

// CatalogAction is "c:<action>:<category>:<size>:<page>". Category 0 means all.
type CatalogAction struct {
	Action     string
	CategoryID uint
	Size       string
	Page       int
}

func (a CatalogAction) Encode() string {
	return fmt.Sprintf("%s:%s:%d:%s:%d", prefixCatalog, a.Action, a.CategoryID, a.Size, a.Page)
}

func (a CatalogAction) Category() *uint {
	if a.CategoryID == 0 {
		return nil
	}
	id := a.CategoryID
	return &id
}

// CardAction is "p:<action>:<product>:<image>:<size>:<qty>".
type CardAction struct {
	Action    string
	ProductID uint
	Image     int
	Size      string
	Quantity  int
}

func (a CardAction) Encode() string {
	return fmt.Sprintf("%s:%s:%d:%d:%s:%d", prefixCard, a.Action, a.ProductID, a.Image, a.Size, a.Quantity)
}

// RefAction is "<prefix>:<action>:<id>" for cart and address buttons.
type RefAction struct {
	Prefix string
	Action string
	ID     uint
}

func (a RefAction) Encode() string {
	return fmt.Sprintf("%s:%s:%d", a.Prefix, a.Action, a.ID)
}

func parseCatalog(data string) (CatalogAction, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 5 || parts[0] != prefixCatalog {
		return CatalogAction{}, errors.Wrap(errBadCallback, data)
	}
	category, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return CatalogAction{}, errors.Wrap(errBadCallback, data)
	}
	page, err := strconv.Atoi(parts[4])
	if err != nil {
		return CatalogAction{}, errors.Wrap(errBadCallback, data)
	}
	return CatalogAction{Action: parts[1], CategoryID: uint(category), Size: parts[3], Page: page}, nil
}

func parseCard(data string) (CardAction, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 6 || parts[0] != prefixCard {
		return CardAction{}, errors.Wrap(errBadCallback, data)
	}
	product, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return CardAction{}, errors.Wrap(errBadCallback, data)
	}
	image, err := strconv.Atoi(parts[3])
	if err != nil {
		return CardAction{}, errors.Wrap(errBadCallback, data)
	}
	qty, err := strconv.Atoi(parts[5])
	if err != nil {
		return CardAction{}, errors.Wrap(errBadCallback, data)
	}
	return CardAction{Action: parts[1], ProductID: uint(product), Image: image, Size: parts[4], Quantity: qty}, nil
}

func parseRef(data string) (RefAction, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return RefAction{}, errors.Wrap(errBadCallback, data)
	}
	id, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return RefAction{}, errors.Wrap(errBadCallback, data)
	}
	return RefAction{Prefix: parts[0], Action: parts[1], ID: uint(id)}, nil
}

func callbackPrefix(data string) string {
	if i := strings.IndexByte(data, ':'); i >= 0 {
		return data[:i]
	}
	return data
}
