package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kiprej-bot/handlers"
	"kiprej-bot/models"
	"kiprej-bot/services"
	"kiprej-bot/testutil"
	"kiprej-bot/utils"
)

type mockStorage struct{}

func (m *mockStorage) Save(context.Context, string, io.Reader, string) (string, error) {
	return "", nil
}
func (m *mockStorage) Delete(context.Context, string) error { return nil }

type nopRunner struct{}

func (nopRunner) RunJob(context.Context, *utils.JobStore, uuid.UUID) {}

type nopBot struct{ calls int }

func (b *nopBot) HandleUpdate(context.Context, tgbotapi.Update) { b.calls++ }

func init() {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret-for-routes")
}

func setupRouter(t *testing.T, bot handlers.UpdateHandler) (*gin.Engine, *services.Services) {
	db := testutil.NewDB(t)
	svc := services.New(db, &mockStorage{})
	r := gin.New()
	SetupRoutes(r, Deps{
		DB:            db,
		Services:      svc,
		Jobs:          utils.NewJobStore(),
		Broadcaster:   nopRunner{},
		Bot:           bot,
		WebhookSecret: "hook",
	})
	return r, svc
}

func tokenFor(t *testing.T, svc *services.Services, telegramID int64, role models.Role) string {
	t.Helper()
	ctx := context.Background()
	u, err := svc.Users.Register(ctx, services.Registration{TelegramID: telegramID, FullName: "Olga Smirnova", Phone: "+79990001122"})
	if err != nil {
		t.Fatal(err)
	}
	if role != models.RoleUser {
		if err := svc.Users.DB.Model(u).Update("role", role).Error; err != nil {
			t.Fatal(err)
		}
	}
	token, err := utils.GenerateToken(u.ID, telegramID, string(role), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func do(r *gin.Engine, method, url, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	r, _ := setupRouter(t, nil)
	w := do(r, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPublicRoutes(t *testing.T) {
	r, _ := setupRouter(t, nil)
	for _, url := range []string{"/api/products", "/api/categories", "/api/promotions"} {
		w := do(r, "GET", url, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", url, w.Code, w.Body.String())
		}
	}
}

func TestAdminRouteRequiresAuth(t *testing.T) {
	r, _ := setupRouter(t, nil)
	w := do(r, "GET", "/api/admin/orders", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminRouteBlocksNonAdmin(t *testing.T) {
	r, svc := setupRouter(t, nil)
	token := tokenFor(t, svc, 10, models.RoleUser)

	w := do(r, "GET", "/api/admin/orders", token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminRouteAllowsAdmin(t *testing.T) {
	r, svc := setupRouter(t, nil)
	token := tokenFor(t, svc, 11, models.RoleAdmin)

	for _, url := range []string{"/api/admin/orders", "/api/admin/promotions", "/api/admin/reviews/pending", "/api/admin/orders/transitions"} {
		w := do(r, "GET", url, token)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", url, w.Code, w.Body.String())
		}
	}
}

func TestDemotedAdminLosesAccess(t *testing.T) {
	r, svc := setupRouter(t, nil)
	token := tokenFor(t, svc, 12, models.RoleAdmin)
	if err := svc.Users.DB.Model(&models.User{}).Where("telegram_id = ?", 12).Update("role", models.RoleUser).Error; err != nil {
		t.Fatal(err)
	}

	w := do(r, "GET", "/api/admin/orders", token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 after demotion, got %d: %s", w.Code, w.Body.String())
	}
}

func TestWebhookRouteOnlyWithBot(t *testing.T) {
	r, _ := setupRouter(t, nil)
	if w := do(r, "POST", WebhookPath, ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a bot, got %d", w.Code)
	}

	bot := &nopBot{}
	r, _ = setupRouter(t, bot)
	req := httptest.NewRequest("POST", WebhookPath, strings.NewReader(`{"update_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handlers.SecretHeader, "hook")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if bot.calls != 1 {
		t.Errorf("expected 1 handled update, got %d", bot.calls)
	}
}
