package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T, ttl time.Duration) *TokenService {
	t.Helper()
	svc, err := NewTokenService("test-secret-for-tokens", "openshelf", "openshelf-api", ttl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func TestNewTokenService_EmptySecret(t *testing.T) {
	_, err := NewTokenService("", "openshelf", "openshelf-api", time.Hour)
	if !errors.Is(err, ErrMissingSecret) {
		t.Errorf("expected ErrMissingSecret, got %v", err)
	}
}

func TestNewTokenService_HonorsTTL(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{"default policy", DefaultTokenTTL},
		{"short lifetime", 30 * time.Second},
		{"negative lifetime", -time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestTokenService(t, tt.ttl)
			if svc.TTL() != tt.ttl {
				t.Errorf("expected TTL %v, got %v", tt.ttl, svc.TTL())
			}
		})
	}
}

func TestTokenService_Roundtrip(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)

	token, err := svc.Issue(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	userID, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != 42 {
		t.Errorf("expected user ID 42, got %d", userID)
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := newTestTokenService(t, -time.Minute)

	token, err := svc.Issue(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)
	other, err := NewTokenService("a-different-secret", "openshelf", "openshelf-api", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, err := other.Issue(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Verify(token)
	if !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestTokenService_Malformed(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("Verify(%q): expected ErrTokenMalformed, got %v", token, err)
		}
	}
}

func TestTokenService_WrongIssuer(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)
	other, err := NewTokenService("test-secret-for-tokens", "someone-else", "openshelf-api", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, err := other.Issue(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Verify(token); err == nil {
		t.Error("expected error for wrong issuer, got nil")
	}
}
