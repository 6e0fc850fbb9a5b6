package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return signed
}

func TestDecodePayloadRoundTrip(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{
		"email": "farmer@example.com",
		"role":  "admin",
	})

	claims := DecodePayload(tok)
	if claims["email"] != "farmer@example.com" {
		t.Fatalf("expected email claim, got %v", claims["email"])
	}
	if claims["role"] != "admin" {
		t.Fatalf("expected role claim, got %v", claims["role"])
	}
}

func TestDecodePayloadMalformed(t *testing.T) {
	for _, tok := range []string{"", "garbage", "a.b", "a.!!!.c", "x.y.z.w"} {
		claims := DecodePayload(tok)
		if claims == nil {
			t.Fatalf("expected non-nil claims for %q", tok)
		}
		if len(claims) != 0 {
			t.Fatalf("expected empty claims for %q, got %v", tok, claims)
		}
	}
}

func TestIsExpiredFutureExp(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if IsExpired(tok) {
		t.Fatal("token with future exp reported expired")
	}
}

func TestIsExpiredPastExp(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	if !IsExpired(tok) {
		t.Fatal("token with past exp reported valid")
	}
}

func TestIsExpiredMissingExp(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{
		"email": "farmer@example.com",
	})
	if IsExpired(tok) {
		t.Fatal("token without exp must be treated as non-expiring")
	}
	if IsExpired("not-a-token") {
		t.Fatal("undecodable token must not report expired")
	}
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	tok := signedToken(t, jwt.MapClaims{"exp": exp.Unix()})

	got, ok := ExpiresAt(tok)
	if !ok {
		t.Fatal("expected exp claim to be found")
	}
	if !got.Equal(exp) {
		t.Fatalf("expected exp %v, got %v", exp, got)
	}

	if _, ok := ExpiresAt(signedToken(t, jwt.MapClaims{"sub": "x"})); ok {
		t.Fatal("expected no exp for token without exp claim")
	}
}

func TestSubjectEmail(t *testing.T) {
	withEmail := signedToken(t, jwt.MapClaims{"email": "farmer@example.com", "sub": "u-1"})
	if got := SubjectEmail(withEmail); got != "farmer@example.com" {
		t.Fatalf("expected email claim preferred, got %q", got)
	}

	subOnly := signedToken(t, jwt.MapClaims{"sub": "farmer@example.com"})
	if got := SubjectEmail(subOnly); got != "farmer@example.com" {
		t.Fatalf("expected sub fallback, got %q", got)
	}

	if got := SubjectEmail("garbage"); got != "" {
		t.Fatalf("expected empty subject for garbage token, got %q", got)
	}
}
