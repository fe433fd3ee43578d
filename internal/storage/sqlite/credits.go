package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/subsplit/internal/models"
)

const creditColumns = `id, member_id, service_id, payment_id, amount, remaining, status, created_at`

// CreateCredit persists a new credit.
func (s *SQLiteStore) CreateCredit(ctx context.Context, c *models.Credit) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}
	if c.Status == "" {
		c.Status = models.CreditAvailable
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO credits (`+creditColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.MemberID, c.ServiceID, c.PaymentID,
		c.Amount.String(), c.Remaining.String(), string(c.Status), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert credit: %w", err)
	}
	return nil
}

// UpdateCredit stores the remaining amount and status of a credit.
func (s *SQLiteStore) UpdateCredit(ctx context.Context, c *models.Credit) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE credits SET remaining = ?, status = ? WHERE id = ?`,
		c.Remaining.String(), string(c.Status), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update credit: %w", err)
	}
	return checkAffected(res, "credit", c.ID)
}

func (s *SQLiteStore) queryCredits(ctx context.Context, query string, args ...any) ([]*models.Credit, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list credits: %w", err)
	}
	defer rows.Close()

	var credits []*models.Credit
	for rows.Next() {
		c := &models.Credit{}
		if err := rows.Scan(&c.ID, &c.MemberID, &c.ServiceID, &c.PaymentID,
			&c.Amount, &c.Remaining, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		credits = append(credits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credits: %w", err)
	}
	return credits, nil
}

// ListAvailableCredits returns the member's unspent credits on a service, oldest first.
func (s *SQLiteStore) ListAvailableCredits(ctx context.Context, memberID, serviceID string) ([]*models.Credit, error) {
	return s.queryCredits(ctx,
		`SELECT `+creditColumns+` FROM credits
		 WHERE member_id = ? AND service_id = ? AND status = ?
		 ORDER BY created_at, id`,
		memberID, serviceID, string(models.CreditAvailable))
}

// ListCreditsByPayment returns the credits generated by a payment.
func (s *SQLiteStore) ListCreditsByPayment(ctx context.Context, paymentID string) ([]*models.Credit, error) {
	return s.queryCredits(ctx,
		`SELECT `+creditColumns+` FROM credits WHERE payment_id = ? ORDER BY created_at, id`,
		paymentID)
}
