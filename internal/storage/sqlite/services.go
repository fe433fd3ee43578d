package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/subsplit/internal/models"
)

const serviceColumns = `id, owner_id, name, monthly_cost, billing_day, split_type, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*models.Service, error) {
	svc := &models.Service{}
	err := row.Scan(
		&svc.ID,
		&svc.OwnerID,
		&svc.Name,
		&svc.MonthlyCost,
		&svc.BillingDay,
		&svc.SplitType,
		&svc.Status,
		&svc.CreatedAt,
	)
	return svc, err
}

// CreateService persists a new service.
func (s *SQLiteStore) CreateService(ctx context.Context, svc *models.Service) error {
	if svc.ID == "" {
		svc.ID = uuid.New().String()
	}
	if svc.CreatedAt == 0 {
		svc.CreatedAt = time.Now().Unix()
	}
	if svc.Status == "" {
		svc.Status = models.ServiceActive
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO services (`+serviceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		svc.ID, svc.OwnerID, svc.Name, svc.MonthlyCost.String(),
		svc.BillingDay, string(svc.SplitType), string(svc.Status), svc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert service: %w", err)
	}
	return nil
}

// GetService retrieves a service owned by ownerID.
func (s *SQLiteStore) GetService(ctx context.Context, ownerID, serviceID string) (*models.Service, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = ? AND owner_id = ?`,
		serviceID, ownerID,
	)
	svc, err := scanService(row)
	if isNoRows(err) {
		return nil, notFound("service", serviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return svc, nil
}

// ListServices returns the owner's services ordered by name.
func (s *SQLiteStore) ListServices(ctx context.Context, ownerID string) ([]*models.Service, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE owner_id = ? ORDER BY name, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating services: %w", err)
	}
	return services, nil
}

// UpdateService overwrites the mutable fields of a service.
func (s *SQLiteStore) UpdateService(ctx context.Context, svc *models.Service) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE services SET name = ?, monthly_cost = ?, billing_day = ?, split_type = ?, status = ?
		 WHERE id = ? AND owner_id = ?`,
		svc.Name, svc.MonthlyCost.String(), svc.BillingDay, string(svc.SplitType), string(svc.Status),
		svc.ID, svc.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}
	return checkAffected(res, "service", svc.ID)
}
