package session

import (
	"context"
	"slices"
	"sync"
)

// LoginEvent announces a completed sign-in.
type LoginEvent struct {
	Record    Record
	SessionID string
}

// Notifier delivers login events to subscribers synchronously, in the
// order they subscribed.
type Notifier struct {
	mu   sync.RWMutex
	subs []func(context.Context, LoginEvent)
}

func NewNotifier() *Notifier { return &Notifier{} }

// Subscribe registers fn for every later Publish.
func (n *Notifier) Subscribe(fn func(context.Context, LoginEvent)) {
	n.mu.Lock()
	n.subs = append(n.subs, fn)
	n.mu.Unlock()
}

// Publish calls every subscriber before returning.
func (n *Notifier) Publish(ctx context.Context, ev LoginEvent) {
	n.mu.RLock()
	subs := slices.Clone(n.subs)
	n.mu.RUnlock()
	for _, fn := range subs {
		fn(ctx, ev)
	}
}
