// Package booking implements booking and cancellation of event places.
//
// Each operation reads the user document and the event document, checks
// the booking rules against what it read, and commits both documents in one
// conditional write.  A concurrent change to either document makes the
// commit fail, in which case the whole read-check-write cycle is repeated
// on fresh data.  The reservation set of a user and the remaining counter of
// an event therefore always move together.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/docstore"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/model"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository"
)

// ChangeKind names the transition a Change reports.
type ChangeKind string

const (
	KindBooked    ChangeKind = "booked"
	KindCancelled ChangeKind = "cancelled"
)

// Change describes a committed booking or cancellation.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	UserID    string     `json:"user_id"`
	EventID   string     `json:"event_id"`
	EventName string     `json:"event_name"`
	Remaining int        `json:"remaining"`
	Capacity  int        `json:"capacity"`
	At        time.Time  `json:"at"`
}

type pairKey struct{ user, event string }

// Service runs the booking protocol against a docstore.
type Service struct {
	store  docstore.Store
	users  *repository.UserRepo
	events *repository.EventRepo
	policy docstore.RetryPolicy

	mu       sync.Mutex
	inflight map[pairKey]struct{}

	hooksMu sync.RWMutex
	hooks   []func(context.Context, Change)
}

// NewService builds a Service.  A zero policy falls back to
// docstore.DefaultRetryPolicy.
func NewService(store docstore.Store, users *repository.UserRepo, events *repository.EventRepo, policy docstore.RetryPolicy) *Service {
	return &Service{
		store:    store,
		users:    users,
		events:   events,
		policy:   policy,
		inflight: make(map[pairKey]struct{}),
	}
}

// OnChange registers fn to run after every committed booking or
// cancellation.  Hooks run synchronously in registration order.
func (s *Service) OnChange(fn func(context.Context, Change)) {
	s.hooksMu.Lock()
	s.hooks = append(s.hooks, fn)
	s.hooksMu.Unlock()
}

// Book adds eventID to the user's reservation set and takes one place of
// the event.  The updated event is returned.
func (s *Service) Book(ctx context.Context, userID, eventID string) (model.Event, error) {
	return s.transition(ctx, KindBooked, userID, eventID)
}

// Cancel removes eventID from the user's reservation set and gives the
// place back.
func (s *Service) Cancel(ctx context.Context, userID, eventID string) (model.Event, error) {
	return s.transition(ctx, KindCancelled, userID, eventID)
}

func (s *Service) transition(ctx context.Context, kind ChangeKind, userID, eventID string) (model.Event, error) {
	updated, err := s.commit(ctx, kind, userID, eventID)
	if err != nil {
		return model.Event{}, err
	}
	// the guard is already released here, so a slow hook cannot block the
	// user's next request for this event
	s.notify(ctx, Change{
		Kind:      kind,
		UserID:    userID,
		EventID:   eventID,
		EventName: updated.Name,
		Remaining: updated.Participants,
		Capacity:  updated.Capacity,
		At:        time.Now().UTC(),
	})
	return updated, nil
}

// commit runs one booking transition under the in-flight guard.
func (s *Service) commit(ctx context.Context, kind ChangeKind, userID, eventID string) (model.Event, error) {
	release, ok := s.acquire(userID, eventID)
	if !ok {
		return model.Event{}, ErrInProgress
	}
	defer release()

	var updated model.Event
	err := docstore.RunTransaction(ctx, s.store, s.policy, func(tx *docstore.Txn) error {
		u, err := s.users.GetTx(tx, userID)
		if err != nil {
			return err
		}
		e, err := s.events.GetTx(tx, eventID)
		if err != nil {
			return err
		}
		switch kind {
		case KindBooked:
			if u.HasBooked(eventID) {
				return ErrAlreadyBooked
			}
			if e.Participants <= 0 {
				return ErrCapacityExhausted
			}
			u.EventList = append(append([]string(nil), u.EventList...), eventID)
			e.Participants--
		case KindCancelled:
			if !u.HasBooked(eventID) {
				return ErrNotBooked
			}
			if e.Participants >= e.Capacity {
				return ErrCapacityOverflow
			}
			u.EventList = without(u.EventList, eventID)
			e.Participants++
		}
		if err := s.users.PutTx(tx, u); err != nil {
			return err
		}
		if err := s.events.PutTx(tx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return model.Event{}, classify(err)
	}
	return updated, nil
}

// IsBooked reports whether the user currently holds a place on the event.
func (s *Service) IsBooked(ctx context.Context, userID, eventID string) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, classify(err)
	}
	return u.HasBooked(eventID), nil
}

// UserEvents resolves the user's reservation set to events.  Ids of events
// that no longer exist are skipped and pruned from the user document on a
// best-effort basis.
func (s *Service) UserEvents(ctx context.Context, userID string) ([]model.Event, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]model.Event, 0, len(u.EventList))
	var dangling []string
	for _, id := range u.EventList {
		e, err := s.events.GetByID(ctx, id)
		if errors.Is(err, repository.ErrEventNotFound) {
			dangling = append(dangling, id)
			continue
		}
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, e)
	}
	if len(dangling) > 0 {
		if err := s.prune(ctx, userID, dangling); err != nil {
			log.Printf("booking: prune %d dangling reservations of %s: %v", len(dangling), userID, err)
		}
	}
	return out, nil
}

func (s *Service) prune(ctx context.Context, userID string, ids []string) error {
	return docstore.RunTransaction(ctx, s.store, s.policy, func(tx *docstore.Txn) error {
		u, err := s.users.GetTx(tx, userID)
		if err != nil {
			return err
		}
		changed := false
		for _, id := range ids {
			if !u.HasBooked(id) {
				continue
			}
			if _, err := s.events.GetTx(tx, id); !errors.Is(err, repository.ErrEventNotFound) {
				if err != nil {
					return err
				}
				continue
			}
			u.EventList = without(u.EventList, id)
			changed = true
		}
		if !changed {
			return nil
		}
		return s.users.PutTx(tx, u)
	})
}

func (s *Service) acquire(userID, eventID string) (func(), bool) {
	k := pairKey{userID, eventID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[k]; busy {
		return nil, false
	}
	s.inflight[k] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, k)
		s.mu.Unlock()
	}, true
}

func (s *Service) notify(ctx context.Context, c Change) {
	s.hooksMu.RLock()
	hooks := slices.Clone(s.hooks)
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, c)
	}
}

func without(list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func classify(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrEventNotFound):
		return ErrEventNotFound
	case IsRuleViolation(err):
		return err
	case errors.Is(err, docstore.ErrConflict):
		return ErrConflict
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
