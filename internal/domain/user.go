package domain

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned by identity lookups when no user has the given id or email.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserInactive marks a known user whose account is disabled.
	ErrUserInactive = errors.New("user inactive")
)

// User is a back-office operator able to authenticate against the API.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
