package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/storage"
)

const memberColumns = `id, owner_id, name, email, phone, user_id, created_at`

func scanMember(row rowScanner) (*models.Member, error) {
	m := &models.Member{}
	var email, phone, userID sql.NullString
	if err := row.Scan(&m.ID, &m.OwnerID, &m.Name, &email, &phone, &userID, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Email = email.String
	m.Phone = phone.String
	m.UserID = userID.String
	return m, nil
}

func (s *SQLiteStore) queryMembers(ctx context.Context, query string, args ...any) ([]*models.Member, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

// CreateMember persists a new member.
func (s *SQLiteStore) CreateMember(ctx context.Context, m *models.Member) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.OwnerID, m.Name, nullString(m.Email), nullString(m.Phone), nullString(m.UserID), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// GetMember retrieves a member owned by ownerID.
func (s *SQLiteStore) GetMember(ctx context.Context, ownerID, memberID string) (*models.Member, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ? AND owner_id = ?`,
		memberID, ownerID,
	)
	m, err := scanMember(row)
	if isNoRows(err) {
		return nil, notFound("member", memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// GetMemberByID retrieves a member regardless of owner.
func (s *SQLiteStore) GetMemberByID(ctx context.Context, memberID string) (*models.Member, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, memberID)
	m, err := scanMember(row)
	if isNoRows(err) {
		return nil, notFound("member", memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// ListMembers returns the owner's members ordered by name.
func (s *SQLiteStore) ListMembers(ctx context.Context, ownerID string) ([]*models.Member, error) {
	return s.queryMembers(ctx,
		`SELECT `+memberColumns+` FROM members WHERE owner_id = ? ORDER BY name, id`, ownerID)
}

// ListMembersByUser returns every member linked to the user account.
func (s *SQLiteStore) ListMembersByUser(ctx context.Context, userID string) ([]*models.Member, error) {
	return s.queryMembers(ctx,
		`SELECT `+memberColumns+` FROM members WHERE user_id = ? ORDER BY name, id`, userID)
}

// UpdateMember overwrites the mutable fields of a member.
func (s *SQLiteStore) UpdateMember(ctx context.Context, m *models.Member) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE members SET name = ?, email = ?, phone = ?, user_id = ? WHERE id = ? AND owner_id = ?`,
		m.Name, nullString(m.Email), nullString(m.Phone), nullString(m.UserID), m.ID, m.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return checkAffected(res, "member", m.ID)
}

// DeleteMember removes a member and its inactive memberships in one
// transaction. Foreign keys reject the delete while payments still
// reference the member.
func (s *SQLiteStore) DeleteMember(ctx context.Context, ownerID, memberID string) error {
	return s.WithTx(ctx, func(q storage.Queries) error {
		tx := q.(*SQLiteStore)
		if _, err := tx.GetMember(ctx, ownerID, memberID); err != nil {
			return err
		}

		if _, err := tx.q.ExecContext(ctx,
			`DELETE FROM service_memberships WHERE member_id = ? AND active = 0`, memberID); err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}

		res, err := tx.q.ExecContext(ctx, `DELETE FROM members WHERE id = ? AND owner_id = ?`, memberID, ownerID)
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: member %s", storage.ErrInUse, memberID)
		}
		if err != nil {
			return fmt.Errorf("failed to delete member: %w", err)
		}
		return checkAffected(res, "member", memberID)
	})
}

// SaveMembership inserts the membership or updates its amount and state.
func (s *SQLiteStore) SaveMembership(ctx context.Context, ms *models.ServiceMembership) error {
	if ms.CreatedAt == 0 {
		ms.CreatedAt = time.Now().Unix()
	}

	var custom any
	if ms.CustomAmount != nil {
		custom = ms.CustomAmount.String()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO service_memberships (service_id, member_id, custom_amount, active, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (service_id, member_id)
		 DO UPDATE SET custom_amount = excluded.custom_amount, active = excluded.active`,
		ms.ServiceID, ms.MemberID, custom, boolToInt(ms.Active), ms.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save membership: %w", err)
	}
	return nil
}

func scanMembership(row rowScanner) (*models.ServiceMembership, error) {
	ms := &models.ServiceMembership{}
	var custom decimal.NullDecimal
	if err := row.Scan(&ms.ServiceID, &ms.MemberID, &custom, &ms.Active, &ms.CreatedAt); err != nil {
		return nil, err
	}
	if custom.Valid {
		ms.CustomAmount = &custom.Decimal
	}
	return ms, nil
}

// GetMembership retrieves the membership of a member on a service.
func (s *SQLiteStore) GetMembership(ctx context.Context, serviceID, memberID string) (*models.ServiceMembership, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT service_id, member_id, custom_amount, active, created_at
		 FROM service_memberships WHERE service_id = ? AND member_id = ?`,
		serviceID, memberID,
	)
	ms, err := scanMembership(row)
	if isNoRows(err) {
		return nil, notFound("membership", serviceID+"/"+memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return ms, nil
}

// ListMemberships returns every membership of a service, active or not.
func (s *SQLiteStore) ListMemberships(ctx context.Context, serviceID string) ([]*models.ServiceMembership, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT service_id, member_id, custom_amount, active, created_at
		 FROM service_memberships WHERE service_id = ? ORDER BY created_at, member_id`,
		serviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*models.ServiceMembership
	for rows.Next() {
		ms, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}
	return memberships, nil
}

// CountActiveMemberships counts the member's active memberships.
func (s *SQLiteStore) CountActiveMemberships(ctx context.Context, memberID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM service_memberships WHERE member_id = ? AND active = 1`,
		memberID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return n, nil
}
