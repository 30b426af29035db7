package storage

import (
	"fmt"

	"datadesk/internal/domain"
)

// PersistLogStore appends and lists persist outcomes.
type PersistLogStore struct {
	db *DB
}

// NewPersistLogStore creates a PersistLogStore.
func NewPersistLogStore(db *DB) *PersistLogStore {
	return &PersistLogStore{db: db}
}

func (s *PersistLogStore) AppendPersistLog(e *domain.PersistLogEntry) error {
	res, err := s.db.conn.Exec(
		`INSERT INTO persist_log (mutation_key, action, backend, status, error) VALUES (?, ?, ?, ?, ?)`,
		e.Key, string(e.Action), e.Backend, e.Status, e.Error,
	)
	if err != nil {
		return fmt.Errorf("append persist log: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// ListPersistLog returns the newest entries first.
func (s *PersistLogStore) ListPersistLog(limit int) ([]domain.PersistLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.conn.Query(
		`SELECT id, mutation_key, action, backend, status, error, created_at
		 FROM persist_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list persist log: %w", err)
	}
	defer rows.Close()

	var entries []domain.PersistLogEntry
	for rows.Next() {
		var e domain.PersistLogEntry
		var action string
		if err := rows.Scan(&e.ID, &e.Key, &action, &e.Backend, &e.Status, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan persist log: %w", err)
		}
		e.Action = domain.Action(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ domain.PersistLogStore = (*PersistLogStore)(nil)
