package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

type item struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	N    int    `json:"n"`
}

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Create(ctx, "items", item{Name: "a", Kind: "x", N: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	d, err := s.Get(ctx, "items", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Version != 1 {
		t.Fatalf("expected version 1, got %d", d.Version)
	}
	if d.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	if err := s.Update(ctx, "items", id, map[string]any{"n": 5}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	d, _ = s.Get(ctx, "items", id)
	var got item
	if err := d.Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.N != 5 || got.Name != "a" {
		t.Errorf("unexpected merged item: %+v", got)
	}
	if d.Version != 2 {
		t.Errorf("expected version 2 after update, got %d", d.Version)
	}

	if err := s.Update(ctx, "items", "missing", map[string]any{"n": 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
	if err := s.Delete(ctx, "items", id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "items", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := s.Get(ctx, "items", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStore_CreateWithIDTaken(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.CreateWithID(ctx, "users", "u1", item{Name: "a"}); err != nil {
		t.Fatalf("CreateWithID: %v", err)
	}
	if err := s.CreateWithID(ctx, "users", "u1", item{Name: "b"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryStore_ListFilterOrderLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	for _, it := range []item{
		{Name: "first", Kind: "music", N: 3},
		{Name: "second", Kind: "sport", N: 1},
		{Name: "third", Kind: "music", N: 2},
	} {
		if _, err := s.Create(ctx, "items", it); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	docs, err := s.List(ctx, "items", Query{
		Filters:    []Filter{{Field: "kind", Value: "music"}},
		OrderBy:    CreatedAtField,
		Descending: true,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 music items, got %d", len(docs))
	}
	var first item
	_ = docs[0].Decode(&first)
	if first.Name != "third" {
		t.Errorf("expected newest first, got %q", first.Name)
	}

	docs, err = s.List(ctx, "items", Query{OrderBy: "n", Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected limit 2, got %d", len(docs))
	}
	var low item
	_ = docs[0].Decode(&low)
	if low.N != 1 {
		t.Errorf("expected ascending numeric order, got n=%d", low.N)
	}

	docs, _ = s.List(ctx, "items", Query{Filters: []Filter{{Field: "n", Value: 3}}})
	if len(docs) != 1 {
		t.Errorf("expected numeric equality to match one item, got %d", len(docs))
	}
}

func TestMemoryStore_CommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a, _ := s.Create(ctx, "items", item{Name: "a"})
	b, _ := s.Create(ctx, "items", item{Name: "b"})

	err := s.Commit(ctx, []Write{
		{Collection: "items", ID: a, ExpectedVersion: 1, Data: []byte(`{"name":"a2"}`)},
		{Collection: "items", ID: b, ExpectedVersion: 7, Data: []byte(`{"name":"b2"}`)},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	d, _ := s.Get(ctx, "items", a)
	var got item
	_ = d.Decode(&got)
	if got.Name != "a" || d.Version != 1 {
		t.Fatalf("first write must not be applied, got %+v v%d", got, d.Version)
	}

	err = s.Commit(ctx, []Write{
		{Collection: "items", ID: a, ExpectedVersion: 1, Data: []byte(`{"name":"a2"}`)},
		{Collection: "items", ID: b, ExpectedVersion: 1, Delete: true},
		{Collection: "items", ID: "c", Data: []byte(`{"name":"c"}`)},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := s.Get(ctx, "items", b); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected b deleted, got %v", err)
	}
	if _, err := s.Get(ctx, "items", "c"); err != nil {
		t.Errorf("expected c created, got %v", err)
	}
}

func TestRunTransaction_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, _ := s.Create(ctx, "items", item{Name: "a", N: 0})

	attempts := 0
	err := RunTransaction(ctx, s, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(tx *Txn) error {
		attempts++
		d, err := tx.Get("items", id)
		if err != nil {
			return err
		}
		var it item
		if err := d.Decode(&it); err != nil {
			return err
		}
		if attempts == 1 {
			// a concurrent writer sneaks in between read and commit
			if err := s.Update(ctx, "items", id, map[string]any{"n": 10}); err != nil {
				return err
			}
		}
		it.N++
		return tx.Set("items", id, it)
	})
	if err != nil {
		t.Fatalf("RunTransaction: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
	d, _ := s.Get(ctx, "items", id)
	var it item
	_ = d.Decode(&it)
	if it.N != 11 {
		t.Errorf("expected n=11, got %d", it.N)
	}
}

func TestRunTransaction_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, _ := s.Create(ctx, "items", item{Name: "a"})

	attempts := 0
	err := RunTransaction(ctx, s, RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}, func(tx *Txn) error {
		attempts++
		if _, err := tx.Get("items", id); err != nil {
			return err
		}
		_ = s.Update(ctx, "items", id, map[string]any{"n": attempts})
		return tx.Set("items", id, item{Name: "lost"})
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRunTransaction_CallbackErrorAborts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, _ := s.Create(ctx, "items", item{Name: "a"})
	boom := errors.New("boom")

	err := RunTransaction(ctx, s, RetryPolicy{}, func(tx *Txn) error {
		if err := tx.Set("items", id, item{Name: "changed"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	d, _ := s.Get(ctx, "items", id)
	var it item
	_ = d.Decode(&it)
	if it.Name != "a" {
		t.Errorf("aborted transaction must not write, got %q", it.Name)
	}
}
