package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the persisted state of a Payment.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusPartial   PaymentStatus = "partial"
	StatusPaid      PaymentStatus = "paid"
	StatusConfirmed PaymentStatus = "confirmed"
	// StatusOverdue is a display state derived from the due date. It is not
	// written by this system but is accepted on read.
	StatusOverdue   PaymentStatus = "overdue"
	StatusCancelled PaymentStatus = "cancelled"
)

// IsTerminal reports whether no regular transition leaves the status.
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// IsOpen reports whether the payment still expects money from the member.
func (s PaymentStatus) IsOpen() bool {
	return s == StatusPending || s == StatusPartial || s == StatusOverdue
}

// CancelReason records why a payment was cancelled.
type CancelReason string

const (
	CancelMembershipDeactivated CancelReason = "membership_deactivated"
	CancelDuplicate             CancelReason = "duplicate"
	CancelRolledOver            CancelReason = "rolled_over"
)

// ClaimSnapshot keeps what a payment looked like before a member claim,
// so rejecting the claim restores it exactly.
type ClaimSnapshot struct {
	PriorStatus     PaymentStatus
	PriorAmountPaid decimal.Decimal
	PriorPaidAt     *time.Time
}

// Payment is what one member owes for one billing cycle of a service.
//
// (ServiceID, MemberID, CycleID) is unique among non-cancelled payments.
// Once confirmed, AmountPaid never exceeds AmountDue + AccumulatedDebt;
// any overpayment has moved to a Credit.
type Payment struct {
	ID        string
	CycleID   string
	ServiceID string
	MemberID  string

	// AmountDue is this cycle's charge after credits were applied.
	AmountDue decimal.Decimal

	// AmountPaid is the total paid for this cycle. It is replaced, not
	// incremented, by claims and registrations.
	AmountPaid decimal.Decimal

	// AccumulatedDebt is the unpaid balance carried from earlier cycles.
	AccumulatedDebt decimal.Decimal

	Status  PaymentStatus
	DueDate time.Time

	PaidAt      *time.Time
	ConfirmedAt *time.Time

	// RequiresConfirmation is set while a member claim waits for the owner.
	RequiresConfirmation bool

	// ShortfallCarried is the balance left unpaid at confirmation. It becomes
	// the AccumulatedDebt of a later payment on the same service.
	ShortfallCarried decimal.Decimal

	// DebtCarried is set once ShortfallCarried has been added to a later
	// payment, so it is carried exactly once.
	DebtCarried bool

	CancelReason CancelReason

	// Claim is non-nil while Status is StatusPaid.
	Claim *ClaimSnapshot

	// Version increments on every write and guards concurrent updates.
	Version int64

	CreatedAt int64
	UpdatedAt int64
}

// Owed is the total the member has to pay for this cycle.
func (p *Payment) Owed() decimal.Decimal {
	return p.AmountDue.Add(p.AccumulatedDebt)
}

// Remaining is Owed minus AmountPaid. Negative when overpaid.
func (p *Payment) Remaining() decimal.Decimal {
	return p.Owed().Sub(p.AmountPaid)
}

// Clone returns a deep copy.
func (p *Payment) Clone() *Payment {
	c := *p
	if p.PaidAt != nil {
		t := *p.PaidAt
		c.PaidAt = &t
	}
	if p.ConfirmedAt != nil {
		t := *p.ConfirmedAt
		c.ConfirmedAt = &t
	}
	if p.Claim != nil {
		claim := *p.Claim
		if p.Claim.PriorPaidAt != nil {
			t := *p.Claim.PriorPaidAt
			claim.PriorPaidAt = &t
		}
		c.Claim = &claim
	}
	return &c
}
