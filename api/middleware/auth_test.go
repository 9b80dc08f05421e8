package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/dollmart/dollmart-backend/pkg/auth"
	"github.com/dollmart/dollmart-backend/pkg/config"
	"github.com/dollmart/dollmart-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "middleware-test-secret",
		Issuer:            "dollmart-test",
		ExpirationMinutes: 5,
	}
}

func TestAuthSeedsContextFromToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:        userID,
		Role:          enums.UserRoleCustomer,
		DiscountClass: enums.DiscountClassRetail,
	})
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}

	var gotUserID, gotRole, gotClass string
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		gotClass = DiscountClassFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUserID != userID.String() {
		t.Fatalf("expected user id %s, got %s", userID, gotUserID)
	}
	if gotRole != enums.UserRoleCustomer.String() {
		t.Fatalf("expected customer role, got %s", gotRole)
	}
	if gotClass != enums.DiscountClassRetail.String() {
		t.Fatalf("expected retail discount class, got %s", gotClass)
	}
}

func TestAuthRejectsMissingAndMalformedTokens(t *testing.T) {
	cfg := testJWTConfig()

	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without valid credentials")
	}))

	cases := map[string]string{
		"no header":     "",
		"empty bearer":  "Bearer ",
		"garbage token": "Bearer not-a-jwt",
	}

	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestAuthRejectsTokenFromAnotherIssuer(t *testing.T) {
	cfg := testJWTConfig()
	other := cfg
	other.Issuer = "someone-else"

	token, err := pkgAuth.MintAccessToken(other, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:        uuid.New(),
		Role:          enums.UserRoleCustomer,
		DiscountClass: enums.DiscountClassIndividual,
	})
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}

	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a foreign issuer")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRoleBlocksCustomers(t *testing.T) {
	handler := RequireRole(enums.UserRoleManager.String(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/manager/v1/orders/pending", nil)
	req = req.WithContext(WithRole(req.Context(), enums.UserRoleCustomer.String()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a customer, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/manager/v1/orders/pending", nil)
	req = req.WithContext(WithRole(req.Context(), enums.UserRoleManager.String()))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a manager, got %d", rec.Code)
	}
}
