// Package queue defines the notifications exchanged over RabbitMQ and the
// publisher and consumer that move them.
package queue

import "time"

// ExchangeName is the topic exchange every notification goes through.
const ExchangeName = "meetups"

// Routing keys.
const (
	KeyBooked    = "booking.booked"
	KeyCancelled = "booking.cancelled"
	KeyLogin     = "user.login"
)

// BookingEvent is published after a booking or cancellation commits.  It
// carries enough for a consumer to log or notify without reading the store.
type BookingEvent struct {
	EventID       string    `json:"event_id"`
	CorrelationID string    `json:"correlation_id"`
	Kind          string    `json:"kind"`
	UserID        string    `json:"user_id"`
	MeetupID      string    `json:"meetup_id"`
	MeetupName    string    `json:"meetup_name"`
	Remaining     int       `json:"remaining"`
	Capacity      int       `json:"capacity"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// LoginEvent is published after a successful sign-in.
type LoginEvent struct {
	EventID       string    `json:"event_id"`
	CorrelationID string    `json:"correlation_id"`
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	IsAdmin       bool      `json:"is_admin"`
	LoginTime     time.Time `json:"login_time"`
}
