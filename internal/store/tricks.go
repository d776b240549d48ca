package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	opPut    = "put"
	opDelete = "delete"
)

// AppendTrick records that trick id now holds document (its JSON form).
// Used both for creation and modification.
func (s *Store) AppendTrick(ctx context.Context, id int, document []byte) error {
	if id < 0 {
		return fmt.Errorf("append trick: negative id %d", id)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trick_events (trick_id, op, document, created_at)
		VALUES (?, ?, ?, ?)
	`, id, opPut, string(document), now())
	if err != nil {
		return fmt.Errorf("append trick %d: %w", id, err)
	}
	return nil
}

// AppendTrickDeletion records that trick id was deleted.
func (s *Store) AppendTrickDeletion(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trick_events (trick_id, op, document, created_at)
		VALUES (?, ?, NULL, ?)
	`, id, opDelete, now())
	if err != nil {
		return fmt.Errorf("append trick deletion %d: %w", id, err)
	}
	return nil
}

// ReplayTricks calls fn for every trick event in the order it was
// appended. document is nil for deletions. Replay stops at the first
// error returned by fn.
func (s *Store) ReplayTricks(ctx context.Context, fn func(id int, document []byte) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trick_id, op, document
		FROM trick_events
		ORDER BY seq ASC
	`)
	if err != nil {
		return fmt.Errorf("query trick events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int
			op  string
			doc sql.NullString
		)
		if err := rows.Scan(&id, &op, &doc); err != nil {
			return fmt.Errorf("scan trick event: %w", err)
		}
		var data []byte
		if op == opPut && doc.Valid {
			data = []byte(doc.String)
		}
		if err := fn(id, data); err != nil {
			return fmt.Errorf("replay trick %d: %w", id, err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate trick events: %w", err)
	}
	return nil
}

// CountTrickEvents returns the number of recorded trick events.
func (s *Store) CountTrickEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trick_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trick events: %w", err)
	}
	return n, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
