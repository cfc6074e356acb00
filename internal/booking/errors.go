package booking

import (
	"errors"
	"fmt"
)

// ErrNotFound matches both ErrUserNotFound and ErrEventNotFound.
var ErrNotFound = errors.New("not found")

var (
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrEventNotFound = fmt.Errorf("event %w", ErrNotFound)
)

// Rule violations.  State is left unchanged when one of these is returned.
var (
	ErrAlreadyBooked     = errors.New("you have already booked this event")
	ErrNotBooked         = errors.New("you have not booked this event")
	ErrCapacityExhausted = errors.New("this event is fully booked")
	ErrCapacityOverflow  = errors.New("cancellation would exceed the event capacity")
)

// ErrConflict is returned when concurrent writers kept invalidating the
// transaction until the retry budget ran out.
var ErrConflict = errors.New("booking is busy, please retry")

// ErrBackendUnavailable wraps any other store failure.
var ErrBackendUnavailable = errors.New("booking service unavailable, please try again later")

// ErrInProgress is returned when the same user already has a booking or
// cancellation for the same event in flight.
var ErrInProgress = errors.New("a request for this event is already in progress")

// IsRuleViolation reports whether err is an expected outcome of the
// booking rules rather than a failure.
func IsRuleViolation(err error) bool {
	return errors.Is(err, ErrAlreadyBooked) ||
		errors.Is(err, ErrNotBooked) ||
		errors.Is(err, ErrCapacityExhausted) ||
		errors.Is(err, ErrCapacityOverflow)
}
