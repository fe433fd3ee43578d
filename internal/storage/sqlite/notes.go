package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/subsplit/internal/models"
)

// CreateNote persists a payment note.
func (s *SQLiteStore) CreateNote(ctx context.Context, n *models.PaymentNote) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO payment_notes (id, payment_id, author_kind, author_id, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.PaymentID, string(n.AuthorKind), n.AuthorID, n.Body, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

// ListNotes returns the notes on a payment, oldest first.
func (s *SQLiteStore) ListNotes(ctx context.Context, paymentID string) ([]*models.PaymentNote, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, payment_id, author_kind, author_id, body, created_at
		 FROM payment_notes WHERE payment_id = ? ORDER BY created_at, id`,
		paymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.PaymentNote
	for rows.Next() {
		n := &models.PaymentNote{}
		if err := rows.Scan(&n.ID, &n.PaymentID, &n.AuthorKind, &n.AuthorID, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}
