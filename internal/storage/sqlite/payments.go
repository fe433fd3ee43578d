package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/storage"
)

const paymentColumns = `id, cycle_id, service_id, member_id, amount_due, amount_paid, accumulated_debt,
	status, due_date, paid_at, confirmed_at, requires_confirmation, shortfall_carried, debt_carried, cancel_reason,
	claim_prior_status, claim_prior_amount, claim_prior_paid_at, version, created_at, updated_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	var (
		dueDate                 int64
		paidAt, confirmedAt     sql.NullInt64
		cancelReason, priorStat sql.NullString
		priorAmount             decimal.NullDecimal
		priorPaidAt             sql.NullInt64
	)
	err := row.Scan(
		&p.ID, &p.CycleID, &p.ServiceID, &p.MemberID,
		&p.AmountDue, &p.AmountPaid, &p.AccumulatedDebt,
		&p.Status, &dueDate, &paidAt, &confirmedAt,
		&p.RequiresConfirmation, &p.ShortfallCarried, &p.DebtCarried, &cancelReason,
		&priorStat, &priorAmount, &priorPaidAt,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.DueDate = time.Unix(dueDate, 0).UTC()
	p.PaidAt = timeFromNull(paidAt)
	p.ConfirmedAt = timeFromNull(confirmedAt)
	p.CancelReason = models.CancelReason(cancelReason.String)
	if priorStat.Valid {
		p.Claim = &models.ClaimSnapshot{
			PriorStatus:     models.PaymentStatus(priorStat.String),
			PriorAmountPaid: priorAmount.Decimal,
			PriorPaidAt:     timeFromNull(priorPaidAt),
		}
	}
	return p, nil
}

// claimArgs flattens the claim snapshot into its three nullable columns.
func claimArgs(c *models.ClaimSnapshot) (status, amount, paidAt any) {
	if c == nil {
		return nil, nil, nil
	}
	return string(c.PriorStatus), c.PriorAmountPaid.String(), unixOrNil(c.PriorPaidAt)
}

// CreatePayment persists a payment at version 1. A second live payment for
// the same service, member and cycle is rejected with storage.ErrDuplicate.
func (s *SQLiteStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	if p.UpdatedAt == 0 {
		p.UpdatedAt = p.CreatedAt
	}
	p.Version = 1

	priorStatus, priorAmount, priorPaidAt := claimArgs(p.Claim)
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CycleID, p.ServiceID, p.MemberID,
		p.AmountDue.String(), p.AmountPaid.String(), p.AccumulatedDebt.String(),
		string(p.Status), p.DueDate.Unix(), unixOrNil(p.PaidAt), unixOrNil(p.ConfirmedAt),
		boolToInt(p.RequiresConfirmation), p.ShortfallCarried.String(), boolToInt(p.DebtCarried),
		nullString(string(p.CancelReason)), priorStatus, priorAmount, priorPaidAt,
		p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: payment for member %s in cycle %s", storage.ErrDuplicate, p.MemberID, p.CycleID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetPayment retrieves a payment by ID.
func (s *SQLiteStore) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, paymentID)
	p, err := scanPayment(row)
	if isNoRows(err) {
		return nil, notFound("payment", paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// UpdatePayment writes every mutable field when the stored version still
// matches p.Version, then bumps p.Version.
func (s *SQLiteStore) UpdatePayment(ctx context.Context, p *models.Payment) error {
	priorStatus, priorAmount, priorPaidAt := claimArgs(p.Claim)
	res, err := s.q.ExecContext(ctx,
		`UPDATE payments SET
			amount_due = ?, amount_paid = ?, accumulated_debt = ?, status = ?, due_date = ?,
			paid_at = ?, confirmed_at = ?, requires_confirmation = ?, shortfall_carried = ?, debt_carried = ?,
			cancel_reason = ?, claim_prior_status = ?, claim_prior_amount = ?, claim_prior_paid_at = ?,
			updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		p.AmountDue.String(), p.AmountPaid.String(), p.AccumulatedDebt.String(), string(p.Status), p.DueDate.Unix(),
		unixOrNil(p.PaidAt), unixOrNil(p.ConfirmedAt), boolToInt(p.RequiresConfirmation), p.ShortfallCarried.String(),
		boolToInt(p.DebtCarried), nullString(string(p.CancelReason)), priorStatus, priorAmount, priorPaidAt,
		p.UpdatedAt,
		p.ID, p.Version,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: payment %s", storage.ErrDuplicate, p.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		// Either the row is gone or someone else wrote it first.
		var exists int
		err := s.q.QueryRowContext(ctx, `SELECT 1 FROM payments WHERE id = ?`, p.ID).Scan(&exists)
		if isNoRows(err) {
			return notFound("payment", p.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to check payment: %w", err)
		}
		return fmt.Errorf("%w: payment %s at version %d", storage.ErrVersionConflict, p.ID, p.Version)
	}

	p.Version++
	return nil
}

func (s *SQLiteStore) queryPayments(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}

// ListCyclePayments returns every payment of a cycle, cancelled ones included.
func (s *SQLiteStore) ListCyclePayments(ctx context.Context, cycleID string) ([]*models.Payment, error) {
	return s.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE cycle_id = ? ORDER BY created_at, id`, cycleID)
}

// ListMemberPayments returns the member's payments on a service, newest cycle first.
func (s *SQLiteStore) ListMemberPayments(ctx context.Context, serviceID, memberID string) ([]*models.Payment, error) {
	return s.queryPayments(ctx,
		`SELECT `+prefixColumns("p.", paymentColumns)+`
		 FROM payments p JOIN billing_cycles c ON c.id = p.cycle_id
		 WHERE p.service_id = ? AND p.member_id = ?
		 ORDER BY c.period_start DESC, p.created_at DESC`,
		serviceID, memberID)
}

// prefixColumns qualifies every column in a comma separated list.
func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = prefix + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
