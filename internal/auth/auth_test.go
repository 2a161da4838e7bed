package auth

import (
	"net/http/httptest"
	"testing"
)

func TestRaterTokenRoundtrip(t *testing.T) {
	a := New("test-secret", 60, "")

	token, err := a.RaterToken("r123", "alice")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("validating token: %v", err)
	}
	if claims.RaterID != "r123" || claims.Handle != "alice" {
		t.Errorf("claims = %+v, want rater r123/alice", claims)
	}
	if claims.Admin {
		t.Error("rater token carries admin flag")
	}
}

func TestAdminToken(t *testing.T) {
	a := New("test-secret", 60, "")

	token, err := a.AdminToken()
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("validating token: %v", err)
	}
	if !claims.Admin {
		t.Error("admin token missing admin flag")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := New("secret-one", 60, "").RaterToken("r1", "alice")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	if _, err := New("secret-two", 60, "").ValidateToken(token); err == nil {
		t.Error("token from another secret accepted")
	}
}

func TestExtractClaims(t *testing.T) {
	a := New("test-secret", 60, "")
	token, err := a.RaterToken("r1", "alice")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	r := httptest.NewRequest("GET", "/api/task/next", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	claims := a.ExtractClaims(r)
	if claims == nil || claims.RaterID != "r1" {
		t.Errorf("claims = %+v, want rater r1", claims)
	}

	if a.ExtractClaims(httptest.NewRequest("GET", "/", nil)) != nil {
		t.Error("claims extracted without a header")
	}
	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	if a.ExtractClaims(r) != nil {
		t.Error("claims extracted from a garbage token")
	}
}

func TestAdminPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}

	a := New("test-secret", 60, hash)
	if !a.CheckAdminPassword("hunter2") {
		t.Error("correct password rejected")
	}
	if a.CheckAdminPassword("wrong") {
		t.Error("wrong password accepted")
	}

	// No configured hash disables admin login, even for empty input.
	disabled := New("test-secret", 60, "")
	if disabled.CheckAdminPassword("") {
		t.Error("admin login possible without a configured hash")
	}
}
