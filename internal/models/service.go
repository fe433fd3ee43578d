package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// SplitType controls how a service's cost is divided among its members.
type SplitType string

const (
	// SplitEqual divides the monthly cost evenly between the owner and every active member.
	SplitEqual SplitType = "equal"
	// SplitCustom charges each member the custom amount on their membership.
	SplitCustom SplitType = "custom"
)

// ServiceStatus is the lifecycle state of a Service.
type ServiceStatus string

const (
	ServiceActive ServiceStatus = "active"
	ServicePaused ServiceStatus = "paused"
)

var (
	ErrNonPositiveCost   = errors.New("monthly cost must be greater than zero")
	ErrInvalidBillingDay = errors.New("billing day must be between 1 and 31")
	ErrInvalidSplitType  = errors.New("split type must be equal or custom")
	ErrEmptyName         = errors.New("name is required")
)

// Service is a recurring subscription owned by one account.
// Services are paused, never deleted, once cycles reference them.
type Service struct {
	// ID is the unique identifier for the service (UUID format).
	ID string

	// OwnerID is the User who pays the provider and is owed by members.
	OwnerID string

	// Name is the display name (e.g. "Netflix", "Spotify Family").
	Name string

	// MonthlyCost is the full price of one billing period. Always > 0.
	MonthlyCost decimal.Decimal

	// BillingDay is the day of month a new cycle starts (1-31, clamped to month length).
	BillingDay int

	SplitType SplitType
	Status    ServiceStatus

	// CreatedAt is the Unix timestamp when the service was created.
	CreatedAt int64
}

// Validate checks the service invariants.
func (s *Service) Validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	if !s.MonthlyCost.IsPositive() {
		return ErrNonPositiveCost
	}
	if s.BillingDay < 1 || s.BillingDay > 31 {
		return ErrInvalidBillingDay
	}
	switch s.SplitType {
	case SplitEqual, SplitCustom:
	default:
		return ErrInvalidSplitType
	}
	return nil
}

// IsActive reports whether the service currently bills its members.
func (s *Service) IsActive() bool {
	return s.Status == ServiceActive
}
