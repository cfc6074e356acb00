package docstore

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds how often RunTransaction retries after ErrConflict.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is used when a zero policy is passed.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 5, BaseDelay: 10 * time.Millisecond, MaxDelay: 250 * time.Millisecond}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay * 16
	}
	return p
}

type readKey struct{ collection, id string }

// Txn collects the read set and the staged writes of one attempt.
// Reads of documents that do not exist are recorded too, so that a
// concurrent create is detected as a conflict.
type Txn struct {
	ctx    context.Context
	store  Store
	reads  map[readKey]int64
	writes []Write
}

// Get reads a document and records the version it was seen at.
func (t *Txn) Get(collection, id string) (Document, error) {
	d, err := t.store.Get(t.ctx, collection, id)
	key := readKey{collection, id}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			t.reads[key] = 0
		}
		return Document{}, err
	}
	t.reads[key] = d.Version
	return d, nil
}

// Set stages a full replacement of the document.  The document must have
// been read through this Txn first unless it is being created.
func (t *Txn) Set(collection, id string, data any) error {
	payload, err := marshalPayload(data)
	if err != nil {
		return err
	}
	t.stage(Write{Collection: collection, ID: id, Data: payload})
	return nil
}

// Delete stages the removal of a document previously read through this Txn.
func (t *Txn) Delete(collection, id string) {
	t.stage(Write{Collection: collection, ID: id, Delete: true})
}

func (t *Txn) stage(w Write) {
	w.ExpectedVersion = t.reads[readKey{w.Collection, w.ID}]
	for i := range t.writes {
		if t.writes[i].Collection == w.Collection && t.writes[i].ID == w.ID {
			t.writes[i] = w
			return
		}
	}
	t.writes = append(t.writes, w)
}

// RunTransaction executes fn against a fresh Txn and commits its staged
// writes atomically, conditioned on the versions fn read.  When the commit
// hits ErrConflict, fn is run again on fresh reads after an exponential
// backoff.  An error returned by fn aborts the attempt without writing and
// is returned unchanged.  When every attempt conflicts ErrConflict is
// returned.
func RunTransaction(ctx context.Context, store Store, policy RetryPolicy, fn func(*Txn) error) error {
	policy = policy.normalized()
	delay := policy.BaseDelay
	for attempt := 1; ; attempt++ {
		t := &Txn{ctx: ctx, store: store, reads: make(map[readKey]int64)}
		if err := fn(t); err != nil {
			return err
		}
		err := store.Commit(ctx, t.writes)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) || attempt >= policy.MaxAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
}
