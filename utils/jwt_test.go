package utils

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func init() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-unit-tests")
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(1, 4242, "admin", time.Hour)
	if err != nil {
		t.Fatalf("expected no error generating token, got: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("expected JWT with 2 dots, got %q", token)
	}
}

func TestValidateToken(t *testing.T) {
	token, err := GenerateToken(7, 4242, "superuser", time.Hour)
	if err != nil {
		t.Fatalf("expected no error generating token, got: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("expected no error validating token, got: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("expected user_id 7, got %d", claims.UserID)
	}
	if claims.TelegramID != 4242 {
		t.Errorf("expected telegram_id 4242, got %d", claims.TelegramID)
	}
	if claims.Role != "superuser" {
		t.Errorf("expected role superuser, got %s", claims.Role)
	}
	if claims.Issuer != "kiprej-bot" {
		t.Errorf("expected issuer 'kiprej-bot', got %s", claims.Issuer)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	claims := Claims{
		UserID: 1,
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Issuer:    "kiprej-bot",
		},
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	expiredToken, err := tokenObj.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ValidateToken(expiredToken); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestForeignIssuerRejected(t *testing.T) {
	claims := Claims{
		UserID: 1,
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "someone-else",
		},
	}
	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := tokenObj.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if _, err := ValidateToken(signed); err == nil {
		t.Fatal("expected error for foreign issuer")
	}
}
