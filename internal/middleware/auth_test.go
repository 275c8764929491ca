package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authRequest(t *testing.T, token string) *httptest.ResponseRecorder {
	t.Helper()
	t.Setenv("APP_JWT_SECRET", testSecret)

	var passed *UserClaims
	handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := GetUserFromContext(r); ok {
			passed = &claims
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/bins", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK && passed == nil {
		t.Fatal("request passed but no claims reached the handler")
	}
	return rec
}

func TestAuthAcceptsCompleteToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"user_id": "u-1",
		"email":   "jordan@smartbin.local",
		"role":    "user",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	if rec := authRequest(t, token); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthRejectsTokenMissingClaims(t *testing.T) {
	// Correctly signed, but with identity claims absent or mistyped. Each
	// must be a clean 401, never a panic.
	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"no role", jwt.MapClaims{"user_id": "u-1", "email": "a@b.c"}},
		{"no user_id", jwt.MapClaims{"email": "a@b.c", "role": "user"}},
		{"numeric user_id", jwt.MapClaims{"user_id": 42, "email": "a@b.c", "role": "user"}},
		{"empty", jwt.MapClaims{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := authRequest(t, signToken(t, tt.claims)); rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuthRejectsWrongSignature(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-1", "email": "a@b.c", "role": "user",
	})
	signed, err := token.SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if rec := authRequest(t, signed); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	if rec := authRequest(t, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
