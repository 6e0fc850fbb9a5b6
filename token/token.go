package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var unverifiedParser = jwt.NewParser()

// DecodePayload decodes the claim segment of an access token without verifying
// its signature.
//
// DecodePayload is best-effort: malformed, truncated, or non-JWT input yields an
// empty map. It never returns an error and never panics.
func DecodePayload(tok string) map[string]any {
	if tok == "" {
		return map[string]any{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(tok, claims); err != nil {
		return map[string]any{}
	}

	return map[string]any(claims)
}

// ExpiresAt reports the expiry instant carried in the token's exp claim.
//
// The second return value is false when the token is malformed or carries no
// exp claim; callers must not conflate "no exp" with "expired".
func ExpiresAt(tok string) (time.Time, bool) {
	if tok == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(tok, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}

// IsExpired reports whether the token's exp claim is at or before the current
// instant.
//
// Tokens without an exp claim are treated as non-expiring and report false, as
// do tokens that cannot be decoded at all — absence of information is never
// treated as expiry.
func IsExpired(tok string) bool {
	exp, ok := ExpiresAt(tok)
	if !ok {
		return false
	}
	return !time.Now().Before(exp)
}

// SubjectEmail extracts the subject email from the token payload.
//
// It prefers an explicit email claim and falls back to sub; an undecodable
// token yields the empty string.
func SubjectEmail(tok string) string {
	claims := DecodePayload(tok)

	if email, ok := claims["email"].(string); ok && email != "" {
		return email
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}

	return ""
}
