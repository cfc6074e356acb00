// Package repository maps users and events onto documents of the backing
// docstore.  Handlers and services use the sentinel errors below to tell
// a missing record from a backend failure.
package repository

import "errors"

// ErrEventNotFound is returned when an event id does not resolve.
var ErrEventNotFound = errors.New("event not found")

// ErrUserNotFound is returned when a user id does not resolve.
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists is returned when a user document already exists for an id.
var ErrUserExists = errors.New("user already exists")

// ErrNoChange indicates an update that names no fields.
var ErrNoChange = errors.New("no change")
