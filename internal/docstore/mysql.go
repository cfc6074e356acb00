package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// DocumentsTableDDL creates the single table backing MySQLStore.
const DocumentsTableDDL = `CREATE TABLE IF NOT EXISTS documents (
    collection VARCHAR(64) NOT NULL,
    id         VARCHAR(64) NOT NULL,
    version    BIGINT UNSIGNED NOT NULL,
    data       JSON NOT NULL,
    created_at DATETIME(6) NOT NULL,
    updated_at DATETIME(6) NOT NULL,
    PRIMARY KEY (collection, id),
    KEY idx_documents_created (collection, created_at)
)`

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// MySQLStore keeps every collection in one `documents` table with a JSON
// payload column.  Optimistic concurrency is enforced with the version
// column: conditional writes are `UPDATE ... WHERE version = ?` statements
// executed inside a single transaction.
type MySQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewMySQLStore returns a MySQLStore bound to db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the underlying handle, e.g. for migrations.
func (s *MySQLStore) DB() *sql.DB { return s.db }

func (s *MySQLStore) Get(ctx context.Context, collection, id string) (Document, error) {
	const q = `SELECT id, version, data, created_at, updated_at FROM documents WHERE collection = ? AND id = ? LIMIT 1`
	var d Document
	var data []byte
	err := s.db.QueryRowContext(ctx, q, collection, id).Scan(&d.ID, &d.Version, &data, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	d.Data = json.RawMessage(data)
	return d, nil
}

func (s *MySQLStore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	var sb strings.Builder
	args := []any{collection}
	sb.WriteString(`SELECT id, version, data, created_at, updated_at FROM documents WHERE collection = ?`)
	for _, f := range q.Filters {
		if !fieldName.MatchString(f.Field) {
			return nil, fmt.Errorf("invalid filter field %q", f.Field)
		}
		want, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", f.Field, err)
		}
		sb.WriteString(` AND JSON_EXTRACT(data, ?) = CAST(? AS JSON)`)
		args = append(args, "$."+f.Field, string(want))
	}
	switch {
	case q.OrderBy == "":
	case q.OrderBy == CreatedAtField:
		sb.WriteString(` ORDER BY created_at`)
		if q.Descending {
			sb.WriteString(` DESC`)
		}
	default:
		if !fieldName.MatchString(q.OrderBy) {
			return nil, fmt.Errorf("invalid order field %q", q.OrderBy)
		}
		sb.WriteString(` ORDER BY JSON_EXTRACT(data, ?)`)
		args = append(args, "$."+q.OrderBy)
		if q.Descending {
			sb.WriteString(` DESC`)
		}
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Document, 0)
	for rows.Next() {
		var d Document
		var data []byte
		if err := rows.Scan(&d.ID, &d.Version, &data, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Data = json.RawMessage(data)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MySQLStore) Create(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.NewString()
	if err := s.CreateWithID(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MySQLStore) CreateWithID(ctx context.Context, collection, id string, data any) error {
	payload, err := marshalPayload(data)
	if err != nil {
		return err
	}
	return s.insert(ctx, s.db, collection, id, payload)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *MySQLStore) insert(ctx context.Context, ex execer, collection, id string, payload json.RawMessage) error {
	const q = `INSERT INTO documents (collection, id, version, data, created_at, updated_at) VALUES (?, ?, 1, ?, ?, ?)`
	now := s.now()
	if _, err := ex.ExecContext(ctx, q, collection, id, string(payload), now, now); err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Update merges partial into the stored payload under a row lock.
func (s *MySQLStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var data []byte
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ? FOR UPDATE`,
		collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	merged, err := mergePayload(data, partial)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, version = version + 1, updated_at = ? WHERE collection = ? AND id = ?`,
		string(merged), s.now(), collection, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *MySQLStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Commit applies writes in one transaction.  A write whose version check
// matches no row rolls the whole batch back with ErrConflict.
func (s *MySQLStore) Commit(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, w := range writes {
		if err := s.apply(ctx, tx, w); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *MySQLStore) apply(ctx context.Context, tx *sql.Tx, w Write) error {
	var (
		res sql.Result
		err error
	)
	switch {
	case w.ExpectedVersion == 0 && !w.Delete:
		return s.insert(ctx, tx, w.Collection, w.ID, w.Data)
	case w.Delete:
		res, err = tx.ExecContext(ctx,
			`DELETE FROM documents WHERE collection = ? AND id = ? AND version = ?`,
			w.Collection, w.ID, w.ExpectedVersion)
	default:
		res, err = tx.ExecContext(ctx,
			`UPDATE documents SET data = ?, version = version + 1, updated_at = ? WHERE collection = ? AND id = ? AND version = ?`,
			string(w.Data), s.now(), w.Collection, w.ID, w.ExpectedVersion)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "1062")
}
