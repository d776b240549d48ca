package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Document is one entry of the document log.
type Document struct {
	ID      string          `json:"id"`
	Date    time.Time       `json:"date"`
	Text    string          `json:"text"`
	Answer  string          `json:"answer_text"`
	Status  string          `json:"status"`
	Tricks  []int           `json:"tricks"`
	Request json.RawMessage `json:"request,omitempty"`
}

// AppendDocument writes a document to the log. Documents with an
// existing id are ignored.
func (s *Store) AppendDocument(ctx context.Context, doc Document) error {
	used := doc.Tricks
	if used == nil {
		used = []int{}
	}
	tricks, err := marshalJSON(used)
	if err != nil {
		return fmt.Errorf("append document: %w", err)
	}
	var request sql.NullString
	if len(doc.Request) > 0 {
		request = sql.NullString{String: string(doc.Request), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, created_at, text, answer, status, tricks, request)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		doc.ID,
		doc.Date.UTC().Format(time.RFC3339Nano),
		doc.Text,
		doc.Answer,
		doc.Status,
		tricks,
		request,
	)
	if err != nil {
		return fmt.Errorf("append document: %w", err)
	}
	return nil
}

// ListDocuments returns the document log in insertion order.
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, text, answer, status, tricks, request
		FROM documents
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			doc     Document
			created string
			tricks  string
			request sql.NullString
		)
		if err := rows.Scan(&doc.ID, &created, &doc.Text, &doc.Answer, &doc.Status, &tricks, &request); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if doc.Date, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("document %s: bad date: %w", doc.ID, err)
		}
		if err := json.Unmarshal([]byte(tricks), &doc.Tricks); err != nil {
			return nil, fmt.Errorf("document %s: bad tricks: %w", doc.ID, err)
		}
		if request.Valid {
			doc.Request = json.RawMessage(request.String)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// marshalJSON encodes v without HTML escaping.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
