package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiprej-bot/models"
)

func TestFormatCardWithVariant(t *testing.T) {
	p := &models.Product{ID: 7, Name: "Hoodie", Description: "Warm", Brand: "Kiprej", Price: d("1000")}
	v := &models.ProductVariant{Size: "M", Color: "black", Markup: d("200"), DiscountPercent: d("10"), Stock: 4}

	c := FormatCard(p, v, 1, 3)
	assert.Equal(t, "2/3", c.PhotoPosition)
	assert.Equal(t, "Hoodie", c.Name)
	assert.Equal(t, "Warm", c.Description)
	assert.Equal(t, "Kiprej", c.Brand)
	assert.Equal(t, "M", c.Size)
	assert.Equal(t, "black", c.Color)
	assert.Equal(t, "1080.00", c.Price.StringFixed(2))
	require.NotNil(t, c.ReferencePrice)
	assert.Equal(t, "1200.00", c.ReferencePrice.StringFixed(2))
	assert.Equal(t, 4, c.Stock)
}

func TestFormatCardFallbacks(t *testing.T) {
	p := &models.Product{Name: "Cap", Price: d("300")}
	c := FormatCard(p, nil, 0, 0)
	assert.Equal(t, "0/0", c.PhotoPosition)
	assert.Equal(t, NoDescription, c.Description)
	assert.Equal(t, Placeholder, c.Brand)
	assert.Equal(t, Placeholder, c.Size)
	assert.Equal(t, Placeholder, c.Color)
	assert.Equal(t, 0, c.Stock)
	assert.Equal(t, "300.00", c.Price.StringFixed(2))
	assert.Nil(t, c.ReferencePrice)
}

func TestCaptionEscapesAndStrikesReference(t *testing.T) {
	p := &models.Product{Name: "Tee <limited>", Price: d("100")}
	v := &models.ProductVariant{Size: "S", DiscountPercent: d("50"), Stock: 1}
	caption := FormatCard(p, v, 0, 1).Caption()
	assert.Contains(t, caption, "Tee &lt;limited&gt;")
	assert.Contains(t, caption, "Price: 50.00 <s>100.00</s>")
	assert.Contains(t, caption, "Photo 1/1")
}
