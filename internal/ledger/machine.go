package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/money"
)

// EventType names what happened to a payment.
type EventType string

const (
	EventClaim    EventType = "claim"
	EventConfirm  EventType = "confirm"
	EventReject   EventType = "reject"
	EventRegister EventType = "register"
	EventRecord   EventType = "record"
	EventCancel   EventType = "cancel"
)

// Event is the input to Machine.Apply.
type Event struct {
	Type EventType

	// Amount is used by EventClaim and EventRegister.
	Amount decimal.Decimal

	// Reason is used by EventCancel.
	Reason models.CancelReason
}

// Claim returns a member claim event.
func Claim(amount decimal.Decimal) Event { return Event{Type: EventClaim, Amount: amount} }

// Confirm returns an owner confirmation event.
func Confirm() Event { return Event{Type: EventConfirm} }

// Reject returns an owner rejection of a claim.
func Reject() Event { return Event{Type: EventReject} }

// Register returns an owner-recorded payment event.
func Register(amount decimal.Decimal) Event { return Event{Type: EventRegister, Amount: amount} }

// Record returns an owner-recorded payment that still needs a separate
// confirmation. An amount covering the balance leaves the payment paid;
// a smaller one leaves it partial.
func Record(amount decimal.Decimal) Event { return Event{Type: EventRecord, Amount: amount} }

// Cancel returns an administrative cancellation event.
func Cancel(reason models.CancelReason) Event { return Event{Type: EventCancel, Reason: reason} }

// Transition is the result of applying an event.
type Transition struct {
	Event  EventType
	From   models.PaymentStatus
	To     models.PaymentStatus
	Before *models.Payment
	After  *models.Payment

	// Settlement is set when the payment became confirmed.
	Settlement *Settlement

	// Noop is true when the event was accepted but changed nothing
	// (confirming an already confirmed payment).
	Noop bool
}

// Confirmed reports whether the transition settled the payment.
func (t *Transition) Confirmed() bool {
	return !t.Noop && t.To == models.StatusConfirmed
}

// Machine applies events to payments.
type Machine struct {
	// MaxOverpayment bounds how far above the owed balance a claim or
	// registration may go. Zero disables the bound.
	MaxOverpayment decimal.Decimal
}

// NewMachine returns a Machine with the given overpayment bound.
func NewMachine(maxOverpayment decimal.Decimal) Machine {
	return Machine{MaxOverpayment: maxOverpayment}
}

// Apply runs one event against p and returns the transition. p is not
// modified. Domain violations are returned as *Error.
func (m Machine) Apply(p *models.Payment, ev Event, now time.Time) (*Transition, error) {
	op := string(ev.Type)
	from := baseStatus(p)
	t := &Transition{
		Event:  ev.Type,
		From:   from,
		Before: p,
	}
	next := p.Clone()
	next.UpdatedAt = now.Unix()

	switch ev.Type {
	case EventClaim:
		if !from.IsOpen() {
			return nil, NewError(KindInvalidState, op, "payment is %s and cannot be claimed", from)
		}
		if err := m.validateAmount(op, p, ev.Amount); err != nil {
			return nil, err
		}
		paidAt := now
		next.Claim = &models.ClaimSnapshot{
			PriorStatus:     from,
			PriorAmountPaid: p.AmountPaid,
			PriorPaidAt:     p.PaidAt,
		}
		next.AmountPaid = ev.Amount
		next.PaidAt = &paidAt
		next.Status = models.StatusPaid
		next.RequiresConfirmation = true

	case EventConfirm:
		switch from {
		case models.StatusConfirmed:
			t.To = from
			t.After = p
			t.Noop = true
			return t, nil
		case models.StatusPaid, models.StatusPartial:
			m.confirm(next, t, now)
		default:
			return nil, NewError(KindInvalidState, op, "payment is %s and cannot be confirmed", from)
		}

	case EventReject:
		if from != models.StatusPaid {
			return nil, NewError(KindInvalidState, op, "payment is %s, only claimed payments can be rejected", from)
		}
		next.Status = models.StatusPending
		next.AmountPaid = decimal.Zero
		next.PaidAt = nil
		if snap := next.Claim; snap != nil {
			next.Status = snap.PriorStatus
			next.AmountPaid = snap.PriorAmountPaid
			next.PaidAt = snap.PriorPaidAt
		}
		next.Claim = nil
		next.RequiresConfirmation = false

	case EventRegister:
		if !from.IsOpen() && from != models.StatusPaid {
			return nil, NewError(KindInvalidState, op, "payment is %s and cannot be registered", from)
		}
		if err := m.validateAmount(op, p, ev.Amount); err != nil {
			return nil, err
		}
		paidAt := now
		next.AmountPaid = ev.Amount
		next.PaidAt = &paidAt
		next.Claim = nil
		next.RequiresConfirmation = false
		if money.Covers(ev.Amount, p.Owed()) {
			m.confirm(next, t, now)
		} else {
			next.Status = models.StatusPartial
		}

	case EventRecord:
		if !from.IsOpen() && from != models.StatusPaid {
			return nil, NewError(KindInvalidState, op, "payment is %s and cannot be registered", from)
		}
		if err := m.validateAmount(op, p, ev.Amount); err != nil {
			return nil, err
		}
		paidAt := now
		if from != models.StatusPaid {
			next.Claim = &models.ClaimSnapshot{
				PriorStatus:     from,
				PriorAmountPaid: p.AmountPaid,
				PriorPaidAt:     p.PaidAt,
			}
		}
		next.AmountPaid = ev.Amount
		next.PaidAt = &paidAt
		if money.Covers(ev.Amount, p.Owed()) {
			next.Status = models.StatusPaid
			next.RequiresConfirmation = true
		} else {
			next.Status = models.StatusPartial
			next.Claim = nil
			next.RequiresConfirmation = false
		}

	case EventCancel:
		if from.IsTerminal() {
			return nil, NewError(KindInvalidState, op, "payment is %s and cannot be cancelled", from)
		}
		next.Status = models.StatusCancelled
		next.CancelReason = ev.Reason
		next.Claim = nil
		next.RequiresConfirmation = false

	default:
		return nil, NewError(KindInvalidState, op, "unknown event")
	}

	t.To = next.Status
	t.After = next
	return t, nil
}

func (m Machine) confirm(next *models.Payment, t *Transition, now time.Time) {
	s := Settle(next)
	applySettlement(next, s)
	confirmedAt := now
	next.Status = models.StatusConfirmed
	next.ConfirmedAt = &confirmedAt
	next.Claim = nil
	next.RequiresConfirmation = false
	t.Settlement = &s
}

func (m Machine) validateAmount(op string, p *models.Payment, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewError(KindInvalidAmount, op, "amount must be greater than zero, got %s", amount)
	}
	if !money.HasValidScale(amount) {
		return NewError(KindInvalidAmount, op, "amount %s has more than %d decimal places", amount, money.Places)
	}
	if m.MaxOverpayment.IsPositive() {
		limit := p.Owed().Add(m.MaxOverpayment)
		if amount.GreaterThan(limit) {
			return NewError(KindInvalidAmount, op, "amount %s exceeds the owed balance %s by more than %s", amount, p.Owed(), m.MaxOverpayment)
		}
	}
	return nil
}

// baseStatus maps a persisted overdue status back onto the state it stands for.
func baseStatus(p *models.Payment) models.PaymentStatus {
	if p.Status == models.StatusOverdue {
		return statusForAmount(p.AmountPaid)
	}
	return p.Status
}

func statusForAmount(paid decimal.Decimal) models.PaymentStatus {
	if paid.IsPositive() {
		return models.StatusPartial
	}
	return models.StatusPending
}

// DeriveDisplayStatus returns the status a reader should show at now:
// pending and partial payments past their due date are overdue.
func DeriveDisplayStatus(p *models.Payment, now time.Time) models.PaymentStatus {
	base := baseStatus(p)
	if base != models.StatusPending && base != models.StatusPartial {
		return base
	}
	if !p.DueDate.IsZero() && now.After(p.DueDate) {
		return models.StatusOverdue
	}
	return base
}

// IsOverdue reports whether DeriveDisplayStatus yields overdue.
func IsOverdue(p *models.Payment, now time.Time) bool {
	return DeriveDisplayStatus(p, now) == models.StatusOverdue
}
