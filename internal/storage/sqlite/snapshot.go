package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/subsplit/internal/calculator"
)

// LoadSnapshot reads every row an owner's projections need. Call it through
// WithTx when the parts must agree with each other.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, ownerID string) (*calculator.Snapshot, error) {
	snap := &calculator.Snapshot{}

	services, err := s.ListServices(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	snap.Services = services

	members, err := s.ListMembers(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	snap.Members = members

	rows, err := s.q.QueryContext(ctx,
		`SELECT m.service_id, m.member_id, m.custom_amount, m.active, m.created_at
		 FROM service_memberships m JOIN services s ON s.id = m.service_id
		 WHERE s.owner_id = ?`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships: %w", err)
	}
	for rows.Next() {
		ms, err := scanMembership(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		snap.Memberships = append(snap.Memberships, ms)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	rows, err = s.q.QueryContext(ctx,
		`SELECT `+prefixColumns("c.", cycleColumns)+`
		 FROM billing_cycles c JOIN services s ON s.id = c.service_id
		 WHERE s.owner_id = ?`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load cycles: %w", err)
	}
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		snap.Cycles = append(snap.Cycles, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycles: %w", err)
	}

	payments, err := s.queryPayments(ctx,
		`SELECT `+prefixColumns("p.", paymentColumns)+`
		 FROM payments p JOIN services s ON s.id = p.service_id
		 WHERE s.owner_id = ?`,
		ownerID)
	if err != nil {
		return nil, err
	}
	snap.Payments = payments

	return snap, nil
}
