package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IsExpired reports whether the token's embedded expiry claim has passed.
// The token is issued and signed server-side; the client only reads the exp
// claim, so the signature is not verified here. Tokens that are absent,
// unparseable or carry no exp claim are treated as expired. An expiry exactly
// equal to now counts as expired.
func IsExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}

	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	return !exp.Time.After(now)
}
