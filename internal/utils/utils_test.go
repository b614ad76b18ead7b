package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "ADMIN", "a@example.com", 15)
	if err != nil {
		t.Fatalf("new access token: %v", err)
	}
	if time.Until(tok.Exp) <= 14*time.Minute {
		t.Fatalf("exp = %v, want about 15 minutes out", tok.Exp)
	}
	claims, err := ParseAccessToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Role != "ADMIN" || claims.Email != "a@example.com" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, _ := NewAccessToken("secret", 1, "PARTICIPANT", "", 15)
	expired, _ := NewAccessToken("secret", 1, "PARTICIPANT", "", -5)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()})
	noneRaw, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	badSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "abc", "exp": time.Now().Add(time.Hour).Unix()}).SignedString([]byte("secret"))

	tests := []struct {
		name   string
		secret string
		raw    string
	}{
		{name: "wrong secret", secret: "other", raw: good.Token},
		{name: "expired", secret: "secret", raw: expired.Token},
		{name: "alg none", secret: "secret", raw: noneRaw},
		{name: "non numeric subject", secret: "secret", raw: badSub},
		{name: "garbage", secret: "secret", raw: "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAccessToken(tt.secret, tt.raw); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	a, err := NewRefreshToken(7)
	if err != nil {
		t.Fatalf("new refresh token: %v", err)
	}
	b, _ := NewRefreshToken(7)
	if len(a.Raw) != 96 || a.Raw == b.Raw {
		t.Fatalf("raw tokens = %q, %q", a.Raw, b.Raw)
	}
	if HashRefreshRaw(a.Raw) != HashRefreshRaw(a.Raw) || HashRefreshRaw(a.Raw) == HashRefreshRaw(b.Raw) {
		t.Fatal("hash must be deterministic and distinct")
	}
	if len(HashRefreshRaw(a.Raw)) != 64 {
		t.Fatalf("hash length = %d, want 64", len(HashRefreshRaw(a.Raw)))
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("hash = %q, want bcrypt", hash)
	}
	if !VerifyPassword(hash, "secret1") || VerifyPassword(hash, "secret2") {
		t.Fatal("verify mismatch")
	}
	if _, err := HashPassword("short", bcrypt.MinCost); err != ErrPasswordTooShort {
		t.Fatalf("short password err = %v, want %v", err, ErrPasswordTooShort)
	}
}
