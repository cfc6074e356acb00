package catalog

import (
	"fmt"
	"strings"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/model"
)

// ValidationError reports a rejected field of an admin submission.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

func validate(e model.Event) error {
	if strings.TrimSpace(e.Name) == "" {
		return invalid("event_name", "is required")
	}
	if strings.TrimSpace(e.Type) == "" {
		return invalid("type", "is required")
	}
	if strings.TrimSpace(e.Venue) == "" {
		return invalid("location", "is required")
	}
	if e.Capacity < 0 {
		return invalid("participants", "must not be negative")
	}
	if (e.Latitude == nil) != (e.Longitude == nil) {
		return invalid("latitude", "latitude and longitude must be given together")
	}
	if e.Latitude != nil && (*e.Latitude < -90 || *e.Latitude > 90) {
		return invalid("latitude", "must be between -90 and 90")
	}
	if e.Longitude != nil && (*e.Longitude < -180 || *e.Longitude > 180) {
		return invalid("longitude", "must be between -180 and 180")
	}
	return nil
}

func trimmed(f model.EventFields) model.EventFields {
	f.Name = strings.TrimSpace(f.Name)
	f.Type = strings.TrimSpace(f.Type)
	f.Venue = strings.TrimSpace(f.Venue)
	f.Description = strings.TrimSpace(f.Description)
	return f
}
