package gateway

import (
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestResolveIdentity_UserIDQueryParam(t *testing.T) {
	auth := NewAuthManager("")

	r := httptest.NewRequest("GET", "/ws?user_id=user-1", nil)
	userID, err := auth.ResolveIdentity(r)
	if err != nil {
		t.Fatalf("Failed to resolve identity: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("Expected user-1, got %s", userID)
	}
}

func TestResolveIdentity_MissingIdentityRejected(t *testing.T) {
	auth := NewAuthManager("")

	// No token, no user id: admission failure before any registry mutation
	r := httptest.NewRequest("GET", "/ws", nil)
	if _, err := auth.ResolveIdentity(r); err == nil {
		t.Error("Expected an error for a missing identity")
	}

	// Whitespace-only identity is just as invalid
	r = httptest.NewRequest("GET", "/ws?user_id=%20%20", nil)
	if _, err := auth.ResolveIdentity(r); err == nil {
		t.Error("Expected an error for a blank identity")
	}
}

func TestResolveIdentity_BearerToken(t *testing.T) {
	auth := NewAuthManager("test-secret")

	token := signedToken(t, "test-secret", jwt.MapClaims{"user_id": "user-7"})
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	userID, err := auth.ResolveIdentity(r)
	if err != nil {
		t.Fatalf("Failed to resolve identity: %v", err)
	}
	if userID != "user-7" {
		t.Errorf("Expected user-7, got %s", userID)
	}
}

func TestResolveIdentity_TokenQueryParam(t *testing.T) {
	auth := NewAuthManager("test-secret")

	token := signedToken(t, "test-secret", jwt.MapClaims{"sub": "user-9"})
	r := httptest.NewRequest("GET", "/ws?token="+token, nil)

	userID, err := auth.ResolveIdentity(r)
	if err != nil {
		t.Fatalf("Failed to resolve identity: %v", err)
	}
	if userID != "user-9" {
		t.Errorf("Expected sub fallback user-9, got %s", userID)
	}
}

func TestResolveIdentity_BadSignatureRejected(t *testing.T) {
	auth := NewAuthManager("test-secret")

	token := signedToken(t, "wrong-secret", jwt.MapClaims{"user_id": "user-7"})
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	if _, err := auth.ResolveIdentity(r); err == nil {
		t.Error("Expected an error for a bad signature")
	}
}

func TestResolveIdentity_UnverifiedParseWithoutSecret(t *testing.T) {
	// No secret configured: the upstream identity provider is trusted, the
	// token is parsed without signature verification
	auth := NewAuthManager("")

	token := signedToken(t, "whatever", jwt.MapClaims{"user_id": "user-3"})
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	userID, err := auth.ResolveIdentity(r)
	if err != nil {
		t.Fatalf("Failed to resolve identity: %v", err)
	}
	if userID != "user-3" {
		t.Errorf("Expected user-3, got %s", userID)
	}
}

func TestResolveIdentity_TokenWithoutIdentityClaim(t *testing.T) {
	auth := NewAuthManager("test-secret")

	token := signedToken(t, "test-secret", jwt.MapClaims{"role": "member"})
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	if _, err := auth.ResolveIdentity(r); err == nil {
		t.Error("Expected an error for a token without a user identity")
	}
}
