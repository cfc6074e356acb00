// Package catalog is the admin side of the event list: create, edit and
// delete events, each followed by a fresh listing.
package catalog

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/docstore"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/model"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository"
)

var (
	// ErrConfirmationRequired is returned by Delete when confirm is false.
	ErrConfirmationRequired = errors.New("delete requires confirmation")
	// ErrCapacityBelowBookings is returned when a resize would leave fewer
	// places than are already booked.
	ErrCapacityBelowBookings = errors.New("capacity is below the number of bookings")
	ErrEventNotFound         = repository.ErrEventNotFound
)

// Update names the fields of an edit.  Nil fields keep their value.
type Update struct {
	Name          *string
	Type          *string
	Venue         *string
	Description   *string
	Latitude      *float64
	Longitude     *float64
	ClearLocation bool
	Capacity      *int
}

// FullUpdate turns a complete form submission into an Update.
func FullUpdate(f model.EventFields) Update {
	u := Update{
		Name:        &f.Name,
		Type:        &f.Type,
		Venue:       &f.Venue,
		Description: &f.Description,
		Capacity:    &f.Capacity,
	}
	if f.Latitude == nil && f.Longitude == nil {
		u.ClearLocation = true
	} else {
		u.Latitude, u.Longitude = f.Latitude, f.Longitude
	}
	return u
}

func (u Update) apply(e model.Event) model.Event {
	if u.Name != nil {
		e.Name = strings.TrimSpace(*u.Name)
	}
	if u.Type != nil {
		e.Type = strings.TrimSpace(*u.Type)
	}
	if u.Venue != nil {
		e.Venue = strings.TrimSpace(*u.Venue)
	}
	if u.Description != nil {
		e.Description = strings.TrimSpace(*u.Description)
	}
	if u.ClearLocation {
		e.Latitude, e.Longitude = nil, nil
	}
	if u.Latitude != nil {
		e.Latitude = u.Latitude
	}
	if u.Longitude != nil {
		e.Longitude = u.Longitude
	}
	return e
}

func (u Update) patch(e model.Event) repository.EventPatch {
	var p repository.EventPatch
	if u.Name != nil {
		p.Name = &e.Name
	}
	if u.Type != nil {
		p.Type = &e.Type
	}
	if u.Venue != nil {
		p.Venue = &e.Venue
	}
	if u.Description != nil {
		p.Description = &e.Description
	}
	if u.ClearLocation || u.Latitude != nil || u.Longitude != nil {
		if e.Latitude == nil {
			p.ClearLocation = true
		} else {
			p.Latitude, p.Longitude = e.Latitude, e.Longitude
		}
	}
	return p
}

// Manager performs admin edits of the catalog.  It is the only writer of
// the non-capacity fields of an event.
type Manager struct {
	store  docstore.Store
	events *repository.EventRepo
	policy docstore.RetryPolicy
	hooks  []func(ctx context.Context, eventID string)
}

// NewManager builds a Manager.
func NewManager(store docstore.Store, events *repository.EventRepo, policy docstore.RetryPolicy) *Manager {
	return &Manager{store: store, events: events, policy: policy}
}

// OnChange registers fn to run after every successful create, update or
// delete.  Hooks run synchronously in registration order.
func (m *Manager) OnChange(fn func(ctx context.Context, eventID string)) {
	m.hooks = append(m.hooks, fn)
}

func (m *Manager) changed(ctx context.Context, id string) {
	for _, fn := range m.hooks {
		fn(ctx, id)
	}
}

// List returns the whole catalog, newest first.
func (m *Manager) List(ctx context.Context) ([]model.Event, error) {
	return m.events.List(ctx)
}

// ListByType returns the events of one type.
func (m *Manager) ListByType(ctx context.Context, eventType string) ([]model.Event, error) {
	return m.events.ListByType(ctx, strings.TrimSpace(eventType))
}

// ListRecent returns the newest events.
func (m *Manager) ListRecent(ctx context.Context, limit int) ([]model.Event, error) {
	return m.events.ListRecent(ctx, limit)
}

// Get returns one event.
func (m *Manager) Get(ctx context.Context, id string) (model.Event, error) {
	return m.events.GetByID(ctx, id)
}

// Create validates and stores a new event, then re-lists the catalog.
func (m *Manager) Create(ctx context.Context, f model.EventFields) (string, []model.Event, error) {
	f = trimmed(f)
	if err := validate(model.Event{
		Name: f.Name, Type: f.Type, Venue: f.Venue,
		Latitude: f.Latitude, Longitude: f.Longitude, Capacity: f.Capacity,
	}); err != nil {
		return "", nil, err
	}
	id, err := m.events.Create(ctx, f)
	if err != nil {
		return "", nil, err
	}
	log.Printf("catalog: created event %s (%q, %d places)", id, f.Name, f.Capacity)
	m.changed(ctx, id)
	list, err := m.List(ctx)
	return id, list, err
}

// Update edits an event, then re-lists the catalog.  A capacity change
// keeps the number of booked places and is applied in a transaction so a
// concurrent booking cannot slip between the read and the write.
func (m *Manager) Update(ctx context.Context, id string, u Update) ([]model.Event, error) {
	if u.Capacity != nil {
		if err := m.resize(ctx, id, u); err != nil {
			return nil, err
		}
	} else {
		cur, err := m.events.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		next := u.apply(cur)
		if err := validate(next); err != nil {
			return nil, err
		}
		if err := m.events.Update(ctx, id, u.patch(next)); err != nil {
			return nil, err
		}
	}
	log.Printf("catalog: updated event %s", id)
	m.changed(ctx, id)
	return m.List(ctx)
}

func (m *Manager) resize(ctx context.Context, id string, u Update) error {
	return docstore.RunTransaction(ctx, m.store, m.policy, func(tx *docstore.Txn) error {
		cur, err := m.events.GetTx(tx, id)
		if err != nil {
			return err
		}
		next := u.apply(cur)
		next.Capacity = *u.Capacity
		if err := validate(next); err != nil {
			return err
		}
		booked := cur.Booked()
		if next.Capacity < booked {
			return ErrCapacityBelowBookings
		}
		next.Participants = next.Capacity - booked
		return m.events.PutTx(tx, next)
	})
}

// Delete removes an event once confirmed, then re-lists the catalog.
func (m *Manager) Delete(ctx context.Context, id string, confirm bool) ([]model.Event, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	if err := m.events.Delete(ctx, id); err != nil {
		return nil, err
	}
	log.Printf("catalog: deleted event %s", id)
	m.changed(ctx, id)
	return m.List(ctx)
}
