package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/docstore"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/model"
)

// EventsCollection holds one document per event.
const EventsCollection = "event_list"

// DefaultRecentLimit is used by ListRecent when no positive limit is given.
const DefaultRecentLimit = 5

// eventDoc is the stored payload of an event.  The id and creation time
// live on the document itself.
type eventDoc struct {
	Name         string   `json:"event_name"`
	Type         string   `json:"type"`
	Venue        string   `json:"location"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Description  string   `json:"description"`
	Participants int      `json:"participants"`
	Capacity     int      `json:"capacity"`
}

func eventFromDoc(d docstore.Document) (model.Event, error) {
	var p eventDoc
	if err := d.Decode(&p); err != nil {
		return model.Event{}, fmt.Errorf("decode event %s: %w", d.ID, err)
	}
	e := model.Event{
		ID:           d.ID,
		Name:         p.Name,
		Type:         p.Type,
		Venue:        p.Venue,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		Description:  p.Description,
		Participants: p.Participants,
		Capacity:     p.Capacity,
		CreatedAt:    d.CreatedAt,
	}
	e.NormalizeCapacity()
	return e, nil
}

func docFromEvent(e model.Event) eventDoc {
	return eventDoc{
		Name:         e.Name,
		Type:         e.Type,
		Venue:        e.Venue,
		Latitude:     e.Latitude,
		Longitude:    e.Longitude,
		Description:  e.Description,
		Participants: e.Participants,
		Capacity:     e.Capacity,
	}
}

// EventPatch names the fields an Update replaces.  Nil pointers are left
// untouched.  ClearLocation removes both coordinates.
type EventPatch struct {
	Name          *string
	Type          *string
	Venue         *string
	Description   *string
	Latitude      *float64
	Longitude     *float64
	ClearLocation bool
	Participants  *int
	Capacity      *int
}

func (p EventPatch) fields() map[string]any {
	m := map[string]any{}
	if p.Name != nil {
		m["event_name"] = *p.Name
	}
	if p.Type != nil {
		m["type"] = *p.Type
	}
	if p.Venue != nil {
		m["location"] = *p.Venue
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.ClearLocation {
		m["latitude"] = nil
		m["longitude"] = nil
	} else {
		if p.Latitude != nil {
			m["latitude"] = *p.Latitude
		}
		if p.Longitude != nil {
			m["longitude"] = *p.Longitude
		}
	}
	if p.Participants != nil {
		m["participants"] = *p.Participants
	}
	if p.Capacity != nil {
		m["capacity"] = *p.Capacity
	}
	return m
}

// EventRepo reads and writes events through a docstore.
type EventRepo struct {
	Store docstore.Store
}

// NewEventRepo constructs an EventRepo.
func NewEventRepo(s docstore.Store) *EventRepo { return &EventRepo{Store: s} }

// List returns every event, newest first.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	return r.list(ctx, docstore.Query{OrderBy: docstore.CreatedAtField, Descending: true})
}

// ListByType returns the events of one type, newest first.
func (r *EventRepo) ListByType(ctx context.Context, eventType string) ([]model.Event, error) {
	return r.list(ctx, docstore.Query{
		Filters:    []docstore.Filter{{Field: "type", Value: eventType}},
		OrderBy:    docstore.CreatedAtField,
		Descending: true,
	})
}

// ListRecent returns the most recently created events.
func (r *EventRepo) ListRecent(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return r.list(ctx, docstore.Query{OrderBy: docstore.CreatedAtField, Descending: true, Limit: limit})
}

func (r *EventRepo) list(ctx context.Context, q docstore.Query) ([]model.Event, error) {
	docs, err := r.Store.List(ctx, EventsCollection, q)
	if err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(docs))
	for _, d := range docs {
		e, err := eventFromDoc(d)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// GetByID returns the event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id string) (model.Event, error) {
	d, err := r.Store.Get(ctx, EventsCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return model.Event{}, ErrEventNotFound
		}
		return model.Event{}, err
	}
	return eventFromDoc(d)
}

// Create stores a new event with every place free and returns its id.
func (r *EventRepo) Create(ctx context.Context, f model.EventFields) (string, error) {
	return r.Store.Create(ctx, EventsCollection, eventDoc{
		Name:         f.Name,
		Type:         f.Type,
		Venue:        f.Venue,
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
		Description:  f.Description,
		Participants: f.Capacity,
		Capacity:     f.Capacity,
	})
}

// Update replaces the fields named by p.
func (r *EventRepo) Update(ctx context.Context, id string, p EventPatch) error {
	fields := p.fields()
	if len(fields) == 0 {
		return ErrNoChange
	}
	if err := r.Store.Update(ctx, EventsCollection, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	return nil
}

// Delete removes the event.  Reservation sets that still name it are left
// alone and pruned lazily on read.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	if err := r.Store.Delete(ctx, EventsCollection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	return nil
}

// GetTx reads an event inside a transaction.
func (r *EventRepo) GetTx(tx *docstore.Txn, id string) (model.Event, error) {
	d, err := tx.Get(EventsCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return model.Event{}, ErrEventNotFound
		}
		return model.Event{}, err
	}
	return eventFromDoc(d)
}

// PutTx stages a full replacement of an event read through the same tx.
func (r *EventRepo) PutTx(tx *docstore.Txn, e model.Event) error {
	return tx.Set(EventsCollection, e.ID, docFromEvent(e))
}
