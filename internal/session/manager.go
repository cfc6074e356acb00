package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL bounds a session when no TTL is configured.
const DefaultTTL = 2 * time.Hour

// Manager opens, resumes and ends sessions.
type Manager struct {
	Store    Store
	TTL      time.Duration
	Notifier *Notifier
}

func NewManager(store Store, ttl time.Duration, n *Notifier) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if n == nil {
		n = NewNotifier()
	}
	return &Manager{Store: store, TTL: ttl, Notifier: n}
}

// Start stores r under a fresh session id, marks it logged in and
// announces the login.  The session id is returned.
func (m *Manager) Start(ctx context.Context, r Record) (string, Record, error) {
	sid := uuid.NewString()
	r.IsLoggedIn = true
	r.LoginTime = time.Now().UTC()
	if err := m.Store.Put(ctx, sid, r, m.TTL); err != nil {
		return "", Record{}, err
	}
	m.Notifier.Publish(ctx, LoginEvent{Record: r, SessionID: sid})
	return sid, r, nil
}

// Resume loads the record of a live session.
func (m *Manager) Resume(ctx context.Context, sid string) (Record, error) {
	return m.Store.Get(ctx, sid)
}

// End deletes the session.  Ending an unknown session is not an error.
func (m *Manager) End(ctx context.Context, sid string) error {
	return m.Store.Delete(ctx, sid)
}
