package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&User{}, &Order{}, &OrderItem{}); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestOrderBeforeCreate(t *testing.T) {
	db := setupTestDB(t)
	user := User{TelegramID: 1001, FullName: "Order Owner"}
	db.Create(&user)
	order := Order{UserID: &user.ID, Total: decimal.NewFromInt(10)}
	if err := db.Create(&order).Error; err != nil {
		t.Fatal(err)
	}
	if order.ID == 0 {
		t.Error("ID should have been assigned")
	}
	if order.OrderNumber == "" {
		t.Error("OrderNumber should have been generated")
	}
	if !order.StatusNotified {
		var stored Order
		db.First(&stored, order.ID)
		if !stored.StatusNotified {
			t.Error("new orders should not wait for a status notice")
		}
	}
}

func TestOrderBeforeCreatePreservesNumber(t *testing.T) {
	db := setupTestDB(t)
	order := Order{OrderNumber: "ORD-FIXED", Total: decimal.NewFromInt(1)}
	db.Create(&order)
	if order.OrderNumber != "ORD-FIXED" {
		t.Errorf("expected ORD-FIXED, got %s", order.OrderNumber)
	}
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatus("unknown"), OrderStatusConfirmed, false},
	}
	for _, tc := range tests {
		if got := IsValidTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("IsValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRoleRank(t *testing.T) {
	if !(RoleUser.Rank() < RoleAdmin.Rank() && RoleAdmin.Rank() < RoleSuperuser.Rank()) {
		t.Error("roles should rank user < admin < superuser")
	}
	if Role("guest").Rank() >= RoleUser.Rank() {
		t.Error("unknown role should rank below user")
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("admin"); !ok || r != RoleAdmin {
		t.Errorf("expected admin, got %q %v", r, ok)
	}
	if _, ok := ParseRole("root"); ok {
		t.Error("root should not parse")
	}
}

func TestUserIsAdmin(t *testing.T) {
	var nilUser *User
	if nilUser.IsAdmin() {
		t.Error("nil user is not an admin")
	}
	if (&User{Role: RoleUser}).IsAdmin() {
		t.Error("plain user is not an admin")
	}
	if !(&User{Role: RoleSuperuser}).IsAdmin() {
		t.Error("superuser has admin rights")
	}
}

func TestPromotionActiveAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	if (Promotion{IsActive: false}).ActiveAt(now) {
		t.Error("inactive promotion should not run")
	}
	if !(Promotion{IsActive: true}).ActiveAt(now) {
		t.Error("promotion without dates should run")
	}
	if (Promotion{IsActive: true, StartDate: &future}).ActiveAt(now) {
		t.Error("promotion starting tomorrow should not run")
	}
	if (Promotion{IsActive: true, EndDate: &past}).ActiveAt(now) {
		t.Error("expired promotion should not run")
	}
	if !(Promotion{IsActive: true, StartDate: &past, EndDate: &future}).ActiveAt(now) {
		t.Error("promotion within range should run")
	}
}

func TestAddressString(t *testing.T) {
	a := Address{AddressLine: "1 Main St", City: "Moscow", Country: "Russia"}
	if got := a.String(); got != "1 Main St, Moscow, Russia" {
		t.Errorf("unexpected address %q", got)
	}
	a.PostalCode = "101000"
	if got := a.String(); got != "1 Main St, Moscow, 101000, Russia" {
		t.Errorf("unexpected address %q", got)
	}
}

func TestCartItemLineTotal(t *testing.T) {
	item := CartItem{Quantity: 3, PriceAtTime: decimal.RequireFromString("1080.50")}
	if !item.LineTotal().Equal(decimal.RequireFromString("3241.50")) {
		t.Errorf("unexpected line total %s", item.LineTotal())
	}
}
