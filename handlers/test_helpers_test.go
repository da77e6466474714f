package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kiprej-bot/models"
	"kiprej-bot/services"
	"kiprej-bot/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret-key-for-unit-tests")
	os.Exit(m.Run())
}

type testEnv struct {
	db    *gorm.DB
	svc   *services.Services
	store *mockStorage
}

func newTestEnv(t *testing.T) *testEnv {
	db := testutil.NewDB(t)
	store := newMockStorage()
	return &testEnv{db: db, svc: services.New(db, store), store: store}
}

func (e *testEnv) seedCategory(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := e.svc.Categories.Create(context.Background(), name, "")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func (e *testEnv) seedProduct(t *testing.T, name string, categoryID uint, sizes ...string) *models.Product {
	t.Helper()
	in := services.NewProduct{CategoryID: categoryID, Name: name, Price: decimal.NewFromInt(1000)}
	for _, s := range sizes {
		in.Variants = append(in.Variants, services.NewVariant{
			Size: s, Markup: decimal.NewFromInt(200), DiscountPercent: decimal.NewFromInt(10), Stock: 3,
		})
	}
	p, err := e.svc.Products.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func (e *testEnv) seedUser(t *testing.T, telegramID int64) *models.User {
	t.Helper()
	u, err := e.svc.Users.Register(context.Background(), services.Registration{
		TelegramID: telegramID, FullName: "Ivan Petrov", Phone: "+79991234567",
	})
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func (e *testEnv) seedOrder(t *testing.T, telegramID int64, productID uint, size string) *models.Order {
	t.Helper()
	ctx := context.Background()
	if _, err := e.svc.Cart.Add(ctx, services.AddToCart{TelegramID: telegramID, ProductID: productID, Size: size, Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	o, err := e.svc.Orders.Checkout(ctx, services.Checkout{TelegramID: telegramID, ShippingAddress: "Lenina 1, Moscow", PaymentMethod: "card"})
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func jsonRequest(method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest sends fields plus one image part per entry of files,
// keyed by file name with the content type as value.
func multipartRequest(method, url string, fields map[string]string, files map[string]string) *http.Request {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, val := range fields {
		_ = writer.WriteField(key, val)
	}
	for filename, contentType := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, filename))
		h.Set("Content-Type", contentType)
		part, err := writer.CreatePart(h)
		if err != nil {
			panic("failed to create multipart file part: " + err.Error())
		}
		part.Write([]byte("fake image data"))
	}
	writer.Close()

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

func parseResponseArray(w *httptest.ResponseRecorder) []interface{} {
	var result []interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}
