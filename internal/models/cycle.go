package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle is one billing period of a Service.
// Each active member gets exactly one Payment per cycle.
type BillingCycle struct {
	ID        string
	ServiceID string

	PeriodStart time.Time
	PeriodEnd   time.Time

	// TotalAmount is the service's monthly cost at generation time.
	TotalAmount decimal.Decimal

	CreatedAt int64
}
