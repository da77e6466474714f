package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kiprej-bot/models"
	"kiprej-bot/testutil"
)

// memStorage keeps saved files in memory. failDelete makes every Delete fail.
type memStorage struct {
	mu         sync.Mutex
	files      map[string][]byte
	failDelete bool
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string][]byte{}}
}

func (m *memStorage) Save(_ context.Context, name string, r io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := "mem://" + name
	m.files[ref] = data
	return ref, nil
}

func (m *memStorage) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete {
		return errors.New("storage unavailable")
	}
	delete(m.files, ref)
	return nil
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

func setup(t *testing.T) (*Services, *gorm.DB, *memStorage) {
	db := testutil.NewDB(t)
	store := newMemStorage()
	return New(db, store), db, store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedUser(t *testing.T, svc *Services, telegramID int64) *models.User {
	u, err := svc.Users.Register(context.Background(), Registration{
		TelegramID: telegramID,
		FullName:   "Ivan Petrov",
		Phone:      "+79991234567",
	})
	require.NoError(t, err)
	return u
}

func seedCategory(t *testing.T, svc *Services, name string) *models.Category {
	c, err := svc.Categories.Create(context.Background(), name, "")
	require.NoError(t, err)
	return c
}

// seedProduct creates a 1000 priced product with a size M variant at +200
// markup and 10% discount.
func seedProduct(t *testing.T, svc *Services, categoryID uint, stock int) *models.Product {
	p, err := svc.Products.Create(context.Background(), NewProduct{
		CategoryID: categoryID,
		Name:       "Wool coat",
		Price:      dec("1000"),
		Variants: []NewVariant{
			{Size: "M", Color: "black", Markup: dec("200"), DiscountPercent: dec("10"), Stock: stock},
		},
	})
	require.NoError(t, err)
	return p
}

func imageFrom(data, contentType string) ImageSource {
	return ImageSource{Open: func(context.Context) (io.ReadCloser, string, error) {
		return io.NopCloser(bytes.NewBufferString(data)), contentType, nil
	}}
}
