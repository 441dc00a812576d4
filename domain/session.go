package domain

import (
	"strings"
	"time"
)

// Session records who logged in and when.
type Session struct {
	Username  string    `json:"username"`
	LoginTime time.Time `json:"loginTime"`
}

// NewSession trims the username and rejects an empty one.
func NewSession(username string, now time.Time) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Session{}, ErrEmptyUsername
	}
	return Session{Username: username, LoginTime: now.UTC()}, nil
}
