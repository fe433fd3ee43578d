package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/storage"
)

const cycleColumns = `id, service_id, period_start, period_end, total_amount, created_at`

func scanCycle(row rowScanner) (*models.BillingCycle, error) {
	c := &models.BillingCycle{}
	var start, end int64
	if err := row.Scan(&c.ID, &c.ServiceID, &start, &end, &c.TotalAmount, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.PeriodStart = time.Unix(start, 0).UTC()
	c.PeriodEnd = time.Unix(end, 0).UTC()
	return c, nil
}

// CreateCycle persists a billing cycle. A second cycle with the same
// service and period start is rejected with storage.ErrDuplicate.
func (s *SQLiteStore) CreateCycle(ctx context.Context, c *models.BillingCycle) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO billing_cycles (`+cycleColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.ServiceID, c.PeriodStart.Unix(), c.PeriodEnd.Unix(), c.TotalAmount.String(), c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: cycle %s@%s", storage.ErrDuplicate, c.ServiceID, c.PeriodStart.Format(time.DateOnly))
	}
	if err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}
	return nil
}

// LatestCycle returns the cycle with the greatest period start.
func (s *SQLiteStore) LatestCycle(ctx context.Context, serviceID string) (*models.BillingCycle, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+cycleColumns+` FROM billing_cycles WHERE service_id = ?
		 ORDER BY period_start DESC LIMIT 1`,
		serviceID,
	)
	c, err := scanCycle(row)
	if isNoRows(err) {
		return nil, notFound("cycle of service", serviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest cycle: %w", err)
	}
	return c, nil
}

// GetCycleByStart returns the service's cycle starting at periodStart.
func (s *SQLiteStore) GetCycleByStart(ctx context.Context, serviceID string, periodStart time.Time) (*models.BillingCycle, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+cycleColumns+` FROM billing_cycles WHERE service_id = ? AND period_start = ?`,
		serviceID, periodStart.Unix(),
	)
	c, err := scanCycle(row)
	if isNoRows(err) {
		return nil, notFound("cycle", serviceID+"@"+periodStart.Format(time.DateOnly))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return c, nil
}
