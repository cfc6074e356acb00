package mapview

import (
	"testing"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/model"
)

func f(v float64) *float64 { return &v }

var sample = []model.Event{
	{ID: "a", Name: "Jazz night", Type: "Music", Latitude: f(50.9), Longitude: f(-1.4), Participants: 3, Capacity: 3},
	{ID: "b", Name: "No map", Type: "music", Latitude: f(50.9), Participants: 3, Capacity: 3},
	{ID: "c", Name: "Five a side", Type: "sport", Latitude: f(0), Longitude: f(0), Participants: 0, Capacity: 10},
	{ID: "d", Name: "Choir", Type: "live music", Latitude: f(1), Longitude: f(2), Participants: 5, Capacity: 5},
}

func TestMarkersSkipsEventsWithoutBothCoordinates(t *testing.T) {
	ms := Markers(sample, Viewer{})
	if len(ms) != 3 {
		t.Fatalf("expected 3 markers, got %d", len(ms))
	}
	for _, m := range ms {
		if m.ID == "b" {
			t.Error("event without longitude must not get a marker")
		}
		if m.CanBook {
			t.Errorf("anonymous viewer must not be able to book %s", m.ID)
		}
	}
	if ms[1].ID != "c" || ms[1].Lat != 0 || ms[1].Lng != 0 {
		t.Errorf("zero coordinates are valid, got %+v", ms[1])
	}
}

func TestMarkersReflectViewer(t *testing.T) {
	v := NewViewer(model.User{ID: "u", EventList: []string{"a"}})
	ms := Markers(sample, v)
	byID := map[string]Marker{}
	for _, m := range ms {
		byID[m.ID] = m
	}
	if !byID["a"].Booked || byID["a"].CanBook {
		t.Errorf("booked event: %+v", byID["a"])
	}
	if byID["c"].CanBook {
		t.Error("full event must not be bookable")
	}
	if !byID["d"].CanBook || byID["d"].AvailableSpots != 5 {
		t.Errorf("open event: %+v", byID["d"])
	}
}

func TestFilterMatchesTypeSubstring(t *testing.T) {
	got := Filter(sample, " MUSIC ")
	if len(got) != 3 {
		t.Fatalf("expected 3 music events, got %d", len(got))
	}
	if len(Filter(sample, "")) != len(sample) {
		t.Error("empty term must keep everything")
	}
	if len(Filter(sample, "chess")) != 0 {
		t.Error("expected no match")
	}
}
