package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Store is a generic JSON document store over SQLite. Documents are keyed
// by (collection, id) and carry an optional scope (typically the owning
// member id) for listing.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle (maintenance queries, tests).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get reads the document with the given id into v.
func (s *Store) Get(ctx context.Context, collection, id string, v any) error {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal([]byte(body), v)
}

// Put upserts the document with the given id.
func (s *Store) Put(ctx context.Context, collection, id, scope string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, scope, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			scope = excluded.scope,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		collection, id, scope, string(body), now, now)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

// Patch merges the given fields into an existing document's top level.
func (s *Store) Patch(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.mutate(ctx, collection, id, func(doc map[string]any) {
		for k, v := range fields {
			doc[k] = v
		}
	})
}

// Append appends item to the array at the named top-level field of an
// existing document, creating the array if absent. Used for message
// history and contribution response appends.
func (s *Store) Append(ctx context.Context, collection, id, field string, item any) error {
	return s.mutate(ctx, collection, id, func(doc map[string]any) {
		arr, _ := doc[field].([]any)
		doc[field] = append(arr, item)
	})
}

// mutate applies fn to a document body inside a transaction, so the
// read and the rewrite are one atomic step and concurrent mutations
// cannot lose each other's writes. Scope is left untouched.
func (s *Store) mutate(ctx context.Context, collection, id string, fn func(doc map[string]any)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mutate %s/%s: %w", collection, id, err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("mutate %s/%s: %w", collection, id, err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return fmt.Errorf("mutate %s/%s: %w", collection, id, err)
	}
	fn(doc)

	updated, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(updated), time.Now().Unix(), collection, id); err != nil {
		return fmt.Errorf("mutate %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

// List returns the raw bodies of all documents in a collection with the
// given scope, oldest first.
func (s *Store) List(ctx context.Context, collection, scope string) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND scope = ? ORDER BY created_at`,
		collection, scope)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		out = append(out, json.RawMessage(body))
	}
	return out, rows.Err()
}

// Delete removes a document. Missing documents are not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	return err
}

// StaleIDs returns ids of documents in a collection not updated since the
// cutoff. Used by the maintenance job.
func (s *Store) StaleIDs(ctx context.Context, collection string, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM documents WHERE collection = ? AND updated_at < ?`,
		collection, cutoff.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
