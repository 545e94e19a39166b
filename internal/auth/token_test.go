package auth

import (
	"testing"
	"time"

	"github.com/HerbHall/havenwatch/pkg/models"
)

func newTestTokenService() *TokenService {
	return NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute)
}

func newTestUser() *models.User {
	return &models.User{
		ID:       123,
		Username: "margaret.admin",
		Email:    "admin@havenwatch.example",
		Role:     models.RoleAdmin,
	}
}

func TestIssueAndValidateAccessToken(t *testing.T) {
	ts := newTestTokenService()
	user := newTestUser()

	token, err := ts.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ts.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}

	if claims.UserID != user.ID {
		t.Errorf("UserID = %d, want %d", claims.UserID, user.ID)
	}
	if claims.Username != user.Username {
		t.Errorf("Username = %q, want %q", claims.Username, user.Username)
	}
	if claims.Role != string(user.Role) {
		t.Errorf("Role = %q, want %q", claims.Role, string(user.Role))
	}
	if claims.Issuer != "havenwatch" {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, "havenwatch")
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	ts1 := NewTokenService([]byte("secret-one-is-32-bytes-long!!!!"), 15*time.Minute)
	ts2 := NewTokenService([]byte("secret-two-is-32-bytes-long!!!!"), 15*time.Minute)

	token, err := ts1.IssueAccessToken(newTestUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	_, err = ts2.ValidateAccessToken(token)
	if err == nil {
		t.Error("expected error validating token with wrong secret")
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	ts := NewTokenService([]byte("test-secret-key-32bytes-long!!"), -1*time.Second)
	token, err := ts.IssueAccessToken(newTestUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	_, err = ts.ValidateAccessToken(token)
	if err == nil {
		t.Error("expected error for expired token")
	}
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	ts := newTestTokenService()
	_, err := ts.ValidateAccessToken("not.a.jwt")
	if err == nil {
		t.Error("expected error for garbage token")
	}
}

func TestValidateAccessToken_RejectsUnknownRole(t *testing.T) {
	ts := newTestTokenService()
	user := newTestUser()
	user.Role = models.Role("JANITOR")
	token, err := ts.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := ts.ValidateAccessToken(token); err == nil {
		t.Error("expected error for unknown role claim")
	}
}

func TestClaimsIdentity(t *testing.T) {
	ts := newTestTokenService()
	token, err := ts.IssueAccessToken(newTestUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	claims, err := ts.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	id := claims.Identity()
	if id.UserID != 123 || id.Role != models.RoleAdmin {
		t.Errorf("Identity = %+v, want {123 ADMIN}", id)
	}
	if claims.ID == "" {
		t.Error("expected token ID (jti) to be set")
	}
}

func TestTokenServiceTTL(t *testing.T) {
	ts := newTestTokenService()
	if ts.AccessTokenTTL() != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 15m", ts.AccessTokenTTL())
	}
}
