package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memDoc struct {
	Document
	seq uint64
}

// MemoryStore keeps documents in process memory.  It honours the same
// version and atomicity rules as the database backends, which makes it the
// store of choice for tests and local development.
type MemoryStore struct {
	mu    sync.Mutex
	colls map[string]map[string]*memDoc
	seq   uint64
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		colls: make(map[string]map[string]*memDoc),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) coll(name string) map[string]*memDoc {
	c, ok := s.colls[name]
	if !ok {
		c = make(map[string]*memDoc)
		s.colls[name] = c
	}
	return c
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.coll(collection)[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return copyDoc(d.Document), nil
}

func (s *MemoryStore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	matched := make([]*memDoc, 0, len(s.coll(collection)))
	for _, d := range s.coll(collection) {
		ok, err := matches(d.Data, q.Filters)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		if ok {
			matched = append(matched, &memDoc{Document: copyDoc(d.Document), seq: d.seq})
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.OrderBy == "" {
			return a.seq < b.seq
		}
		c := compareField(a, b, q.OrderBy)
		if c == 0 {
			c = compareUint(a.seq, b.seq)
		}
		if q.Descending {
			return c > 0
		}
		return c < 0
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	out := make([]Document, 0, len(matched))
	for _, d := range matched {
		out = append(out, d.Document)
	}
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.NewString()
	if err := s.CreateWithID(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) CreateWithID(ctx context.Context, collection, id string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := marshalPayload(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection)
	if _, ok := c[id]; ok {
		return ErrConflict
	}
	s.put(c, id, payload)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.coll(collection)[id]
	if !ok {
		return ErrNotFound
	}
	merged, err := mergePayload(d.Data, partial)
	if err != nil {
		return err
	}
	d.Data = merged
	d.Version++
	d.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection)
	if _, ok := c[id]; !ok {
		return ErrNotFound
	}
	delete(c, id)
	return nil
}

func (s *MemoryStore) Commit(ctx context.Context, writes []Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// validate the whole batch before touching anything
	for _, w := range writes {
		d, ok := s.coll(w.Collection)[w.ID]
		switch {
		case w.ExpectedVersion == 0 && (ok || w.Delete):
			return ErrConflict
		case w.ExpectedVersion != 0 && (!ok || d.Version != w.ExpectedVersion):
			return ErrConflict
		}
	}
	for _, w := range writes {
		c := s.coll(w.Collection)
		if w.Delete {
			delete(c, w.ID)
			continue
		}
		if d, ok := c[w.ID]; ok {
			d.Data = append(json.RawMessage(nil), w.Data...)
			d.Version++
			d.UpdatedAt = s.now()
			continue
		}
		s.put(c, w.ID, w.Data)
	}
	return nil
}

func (s *MemoryStore) put(c map[string]*memDoc, id string, payload json.RawMessage) {
	s.seq++
	now := s.now()
	c[id] = &memDoc{
		Document: Document{
			ID:        id,
			Version:   1,
			Data:      append(json.RawMessage(nil), payload...),
			CreatedAt: now,
			UpdatedAt: now,
		},
		seq: s.seq,
	}
}

func copyDoc(d Document) Document {
	d.Data = append(json.RawMessage(nil), d.Data...)
	return d
}

func matches(data json.RawMessage, filters []Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false, err
	}
	for _, f := range filters {
		want, err := json.Marshal(f.Value)
		if err != nil {
			return false, fmt.Errorf("filter %s: %w", f.Field, err)
		}
		got, ok := fields[f.Field]
		if !ok || !jsonEqual(got, want) {
			return false, nil
		}
	}
	return true, nil
}

func jsonEqual(a, b []byte) bool {
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	return fmt.Sprintf("%v", va) == fmt.Sprintf("%v", vb)
}

func compareField(a, b *memDoc, field string) int {
	if field == CreatedAtField {
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	var fa, fb map[string]any
	_ = json.Unmarshal(a.Data, &fa)
	_ = json.Unmarshal(b.Data, &fb)
	va, vb := fa[field], fb[field]
	na, aNum := va.(float64)
	nb, bNum := vb.(float64)
	if aNum && bNum {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	sa, sb := fmt.Sprint(va), fmt.Sprint(vb)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
