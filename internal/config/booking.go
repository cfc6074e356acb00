package config

import "time"

// BookingConfig bounds the retries of booking transactions.
type BookingConfig struct {
	MaxAttempts int
	RetryBase   time.Duration
	RetryMax    time.Duration
}

// LoadBookingConfig reads BOOKING_MAX_ATTEMPTS, BOOKING_RETRY_BASE and
// BOOKING_RETRY_MAX.
func LoadBookingConfig() BookingConfig {
	c := BookingConfig{
		MaxAttempts: envInt("BOOKING_MAX_ATTEMPTS", 5),
		RetryBase:   envDur("BOOKING_RETRY_BASE", 10*time.Millisecond),
		RetryMax:    envDur("BOOKING_RETRY_MAX", 250*time.Millisecond),
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 10 * time.Millisecond
	}
	if c.RetryMax < c.RetryBase {
		c.RetryMax = c.RetryBase
	}
	return c
}
