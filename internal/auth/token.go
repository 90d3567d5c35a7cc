package auth

import (
	"strings"
	"time"
)

// DefaultExpiresIn is assumed when the provider omits ExpiresIn from an
// authentication result. Cognito access tokens default to one hour.
const DefaultExpiresIn = 3600

// Token is one obtained access credential and its issuance metadata.
//
// ExpiresAt is always derived from the issuance time plus ExpiresIn; it is
// never supplied independently. The Client replaces or updates its current
// Token atomically with respect to readers, so a Token value handed out by
// CurrentToken() is a consistent snapshot.
type Token struct {
	AccessToken  string
	RefreshToken string // empty when the provider issued none
	ExpiresIn    int32  // seconds, as reported at issuance
	TokenType    string // typically "Bearer"
	ExpiresAt    time.Time
}

// NewToken builds a Token issued at the given time. A zero expiresIn falls
// back to DefaultExpiresIn, and an empty tokenType to "Bearer".
func NewToken(accessToken, refreshToken string, expiresIn int32, tokenType string, issuedAt time.Time) *Token {
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    tokenType,
		ExpiresAt:    issuedAt.Add(time.Duration(expiresIn) * time.Second),
	}
}

// ExpiredAt reports whether the token has passed its expiry at the given time.
func (t *Token) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// CreateAuthenticatedHeaders builds the HTTP headers used to authenticate an
// outbound request with the given bearer token.
func CreateAuthenticatedHeaders(bearerToken string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + bearerToken,
		"Content-Type":  "application/json",
	}
}

// looksLikeJWT reports whether s has the structural shape of a JWT:
// three non-empty dot-separated segments. No signature or claim is checked.
func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
