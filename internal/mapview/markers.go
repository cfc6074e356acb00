// Package mapview turns catalog events into map markers.
package mapview

import (
	"strings"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/model"
)

// Marker is one pin on the events map.
type Marker struct {
	ID             string  `json:"id"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	Name           string  `json:"event_name"`
	Type           string  `json:"type"`
	Venue          string  `json:"location"`
	Description    string  `json:"description"`
	AvailableSpots int     `json:"available_spots"`
	Booked         bool    `json:"booked"`
	CanBook        bool    `json:"can_book"`
}

// Viewer is the signed-in user looking at the map, if any.
type Viewer struct {
	LoggedIn bool
	Booked   map[string]bool
}

// NewViewer builds a Viewer from a user's reservation set.
func NewViewer(u model.User) Viewer {
	v := Viewer{LoggedIn: true, Booked: make(map[string]bool, len(u.EventList))}
	for _, id := range u.EventList {
		v.Booked[id] = true
	}
	return v
}

// Markers returns one marker per geolocated event, in input order.
// Events missing either coordinate are left off the map.
func Markers(events []model.Event, viewer Viewer) []Marker {
	out := make([]Marker, 0, len(events))
	for _, e := range events {
		if !e.Geolocated() {
			continue
		}
		booked := viewer.Booked[e.ID]
		out = append(out, Marker{
			ID:             e.ID,
			Lat:            *e.Latitude,
			Lng:            *e.Longitude,
			Name:           e.Name,
			Type:           e.Type,
			Venue:          e.Venue,
			Description:    e.Description,
			AvailableSpots: e.Participants,
			Booked:         booked,
			CanBook:        viewer.LoggedIn && !booked && e.Participants > 0,
		})
	}
	return out
}

// Filter keeps events whose type contains term, ignoring case.  An empty
// term keeps everything.
func Filter(events []model.Event, term string) []model.Event {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return events
	}
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Type), term) {
			out = append(out, e)
		}
	}
	return out
}
