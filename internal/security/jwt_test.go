package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/veridianhq/hr-api/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newCodecForTest() *TokenCodec {
	return NewTokenCodec("hr-api", "hr-web", testSecret)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := newCodecForTest()

	raw, err := codec.IssueAccessToken(42, domain.RoleManager, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := codec.DecodeAccessToken(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, err := claims.EmployeeID()
	if err != nil {
		t.Fatalf("employee id: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected employee 42, got %d", id)
	}
	if claims.Role != string(domain.RoleManager) {
		t.Fatalf("expected manager role snapshot, got %q", claims.Role)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Fatalf("expected access token type, got %q", claims.TokenType)
	}
	if claims.ID == "" {
		t.Fatal("expected a unique token id")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	codec := newCodecForTest()

	raw, err := codec.IssueAccessToken(1, domain.RoleEmployee, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := codec.DecodeAccessToken(raw); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	codec := newCodecForTest()

	refresh, err := codec.IssueRefreshToken(1, domain.RoleEmployee, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := codec.DecodeAccessToken(refresh); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType, got %v", err)
	}

	access, err := codec.IssueAccessToken(1, domain.RoleEmployee, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := codec.DecodeRefreshToken(access); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	codec := newCodecForTest()

	raw, err := codec.IssueAccessToken(7, domain.RoleHRAdmin, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", raw)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := codec.DecodeAccessToken(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	codec := newCodecForTest()
	other := NewTokenCodec("hr-api", "hr-web", "ffffffffffffffffffffffffffffffff")

	raw, err := codec.IssueAccessToken(7, domain.RoleEmployee, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.DecodeAccessToken(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestWrongAudienceRejected(t *testing.T) {
	codec := newCodecForTest()
	other := NewTokenCodec("hr-api", "other-app", testSecret)

	raw, err := codec.IssueAccessToken(7, domain.RoleEmployee, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.DecodeAccessToken(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
