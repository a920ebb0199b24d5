package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{
			name:  "future expiry is valid",
			token: signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}),
			want:  false,
		},
		{
			name:  "past expiry is expired",
			token: signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()}),
			want:  true,
		},
		{
			name:  "expiry exactly now is expired",
			token: signedToken(t, jwt.MapClaims{"exp": now.Unix()}),
			want:  true,
		},
		{
			name:  "missing exp claim is expired",
			token: signedToken(t, jwt.MapClaims{"sub": "user-1"}),
			want:  true,
		},
		{
			name:  "garbage token is expired",
			token: "not-a-token",
			want:  true,
		},
		{
			name:  "empty token is expired",
			token: "",
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpired(tt.token, now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
