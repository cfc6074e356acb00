// Package docstore defines the document store the application persists
// users and events in.  Documents are addressed by collection name and id,
// carry their payload as raw JSON and a monotonically increasing version.
// The version is what makes multi-document conditional commits possible:
// every write names the version it was computed from and the whole batch
// is rejected with ErrConflict if any document moved in the meantime.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrConflict is returned by Commit when a write's expected version no
// longer matches the stored version.  Nothing from the batch is applied.
var ErrConflict = errors.New("document version conflict")

// CreatedAtField is the field name every backend can order by.
const CreatedAtField = "created_at"

// Document is a stored JSON payload together with its bookkeeping fields.
type Document struct {
	ID        string
	Version   int64
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Decode unmarshals the payload into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Filter is an equality predicate on a top-level field of the payload.
type Filter struct {
	Field string
	Value any
}

// Query narrows a List call.  A zero Query returns every document of the
// collection in unspecified order.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Write is one element of an atomic Commit.  ExpectedVersion 0 means the
// document must not exist yet.  When Delete is set Data is ignored.
type Write struct {
	Collection      string
	ID              string
	ExpectedVersion int64
	Data            json.RawMessage
	Delete          bool
}

// Store is the narrow interface the rest of the application consumes.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, q Query) ([]Document, error)
	Create(ctx context.Context, collection string, data any) (string, error)
	// CreateWithID stores data under a caller-chosen id.  It fails with
	// ErrConflict when the id is taken.
	CreateWithID(ctx context.Context, collection, id string, data any) error
	// Update merges the top-level fields of partial into the document.
	Update(ctx context.Context, collection, id string, partial map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Commit(ctx context.Context, writes []Write) error
}

// marshalPayload turns data into a JSON object, accepting pre-encoded JSON.
func marshalPayload(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	default:
		return json.Marshal(v)
	}
}

// mergePayload applies partial on top of the JSON object in base.
func mergePayload(base json.RawMessage, partial map[string]any) (json.RawMessage, error) {
	fields := map[string]any{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &fields); err != nil {
			return nil, err
		}
	}
	for k, v := range partial {
		fields[k] = v
	}
	return json.Marshal(fields)
}
