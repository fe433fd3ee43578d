package models

import "github.com/shopspring/decimal"

// CreditStatus is the state of a Credit.
type CreditStatus string

const (
	CreditAvailable CreditStatus = "available"
	CreditConsumed  CreditStatus = "consumed"
)

// Credit is an overpayment kept for a member on a service.
// It is produced at confirmation and reduces the AmountDue of the member's
// next cycle on that service.
type Credit struct {
	ID        string
	MemberID  string
	ServiceID string

	// PaymentID is the payment whose overpayment created the credit.
	PaymentID string

	// Amount is the original overpayment.
	Amount decimal.Decimal

	// Remaining is what has not yet been applied to a cycle.
	Remaining decimal.Decimal

	Status CreditStatus

	CreatedAt int64
}
