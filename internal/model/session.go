package model

import "time"

// Session persists the bearer token and serialized user profile for one chat.
// It is the client-side storage analog: written on login/register, cleared on
// logout or detected token expiry.
type Session struct {
	ID        uint  `gorm:"primaryKey"`
	ChatID    int64 `gorm:"uniqueIndex"`
	Token     string
	UserJSON  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
