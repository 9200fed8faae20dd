package httpapi

import (
	"context"
	"testing"
	"time"

	"billquick/backend/internal/domain"
	"billquick/backend/internal/store/memory"
)

func TestSignupRejectsWeakInput(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, memory.New())

	cases := []domain.SignupRequest{
		{Email: "", Password: "secret123"},
		{Email: "not-an-email", Password: "secret123"},
		{Email: "has space@example.com", Password: "secret123"},
		{Email: "ok@example.com", Password: "short"},
	}
	for _, req := range cases {
		if _, err := manager.Signup(context.Background(), req); err == nil {
			t.Fatalf("expected signup to fail for %+v", req)
		}
	}
}

func TestSignupIssuesParsableToken(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, memory.New())

	resp, err := manager.Signup(context.Background(), domain.SignupRequest{
		Email:    "Shop@Example.COM",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if resp.AccountID == "" {
		t.Fatalf("expected server-assigned account id")
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.AccountID != resp.AccountID {
		t.Fatalf("expected token subject %s, got %s", resp.AccountID, actor.AccountID)
	}
	if actor.Email != "shop@example.com" {
		t.Fatalf("expected lowercased email claim, got %s", actor.Email)
	}
}

func TestLoginNormalizesEmailCase(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, memory.New())

	if _, err := manager.Signup(context.Background(), domain.SignupRequest{
		Email:    "owner@corner.shop",
		Password: "secret123",
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := manager.Login(context.Background(), domain.LoginRequest{
		Email:    "  OWNER@corner.shop ",
		Password: "secret123",
	}); err != nil {
		t.Fatalf("expected case-insensitive login, got %v", err)
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	repo := memory.New()
	issuer := NewAuthManager("secret-one", time.Hour, repo)
	verifier := NewAuthManager("secret-two", time.Hour, repo)

	resp, err := issuer.Signup(context.Background(), domain.SignupRequest{
		Email:    "shop@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, memory.New())

	token, err := manager.sign("acct-1", "shop@example.com", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
