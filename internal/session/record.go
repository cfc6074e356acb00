// Package session keeps the server-side record of a signed-in user.
//
// A record is created at sign-in under a random session id, carried in the
// access token, loaded for every authenticated request and deleted at
// sign-out.  Nothing about the session lives in process globals: the
// record travels with the request through Context.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for an unknown, expired or ended session.
var ErrNotFound = errors.New("session not found")

// Record is the profile of a signed-in user, merged from the account and
// the user document at sign-in.
type Record struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	IsAdmin     bool      `json:"isAdmin"`
	IsLoggedIn  bool      `json:"isLoggedIn"`
	LoginTime   time.Time `json:"loginTime"`
}

// Store persists records by session id.
type Store interface {
	Put(ctx context.Context, sid string, r Record, ttl time.Duration) error
	Get(ctx context.Context, sid string) (Record, error)
	Delete(ctx context.Context, sid string) error
}

type ctxKey struct{}

// WithRecord returns a copy of ctx carrying r.
func WithRecord(ctx context.Context, r Record) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the record carried by ctx, if any.
func FromContext(ctx context.Context) (Record, bool) {
	r, ok := ctx.Value(ctxKey{}).(Record)
	return r, ok
}
