package identity

import (
	"testing"
	"time"
)

func TestIssueAndValidateAccessToken(t *testing.T) {
	cfg := JWTCfg{Secret: "test-secret", Issuer: "ques-core-test", TTL: 30 * time.Minute}
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	tok, err := IssueAccessToken(cfg, 42, now)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	userID, err := ValidateAccessToken(cfg, tok)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user id 42, got %d", userID)
	}
}

func TestValidateAccessToken_WrongSecretRejected(t *testing.T) {
	cfg := JWTCfg{Secret: "test-secret", Issuer: "ques-core-test", TTL: 30 * time.Minute}
	now := time.Now()

	tok, err := IssueAccessToken(cfg, 7, now)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	wrongCfg := cfg
	wrongCfg.Secret = "different-secret"
	if _, err := ValidateAccessToken(wrongCfg, tok); err == nil {
		t.Fatal("expected validation to fail with a different secret")
	}
}

func TestValidateAccessToken_ExpiredRejected(t *testing.T) {
	cfg := JWTCfg{Secret: "test-secret", Issuer: "ques-core-test", TTL: time.Second}
	past := time.Now().Add(-time.Hour)

	tok, err := IssueAccessToken(cfg, 1, past)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	if _, err := ValidateAccessToken(cfg, tok); err == nil {
		t.Fatal("expected validation to fail for expired token")
	}
}
