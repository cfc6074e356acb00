// Package identity owns accounts: email, display name and password hash.
// Each account is mirrored by a user document created at sign-up.
package identity

import (
	"context"
	"net/mail"
	"strings"
	"time"
)

// MinPasswordLen is the shortest password accepted at sign-up.
const MinPasswordLen = 6

// Account is the identity side of a user.
type Account struct {
	UID         string
	Email       string
	DisplayName string
	Disabled    bool
	CreatedAt   time.Time
}

// Provider signs users up and in.  Failures the user can act on are
// returned as *AuthError.
type Provider interface {
	SignUp(ctx context.Context, email, password, displayName string) (Account, error)
	SignIn(ctx context.Context, email, password string) (Account, error)
	// SetDisabled blocks or unblocks sign-in.  Unknown uids give
	// ErrUserNotFound.
	SetDisabled(ctx context.Context, uid string, disabled bool) error
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func checkPassword(password string) error {
	if len(password) < MinPasswordLen {
		return ErrWeakPassword
	}
	return nil
}
