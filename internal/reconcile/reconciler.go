// Package reconcile runs the payment lifecycle against storage: member
// claims, owner confirmations and registrations, rejections, cancellations,
// billing cycle generation and the read projections built on top of them.
//
// Every mutating operation runs in a single storage transaction. The
// payment is re-read inside the transaction and written back with a
// version guard, so a concurrent writer either serializes behind it or
// surfaces as a ledger.KindConflict error.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/ledger"
	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/money"
	"github.com/mmynk/subsplit/internal/storage"
)

// DefaultDueAfterDays is how long after the period start a payment is due.
const DefaultDueAfterDays = 7

// DefaultMaxOverpayment is used when Config.MaxOverpayment is zero.
var DefaultMaxOverpayment = money.MustParse("10000")

// Outcome summarizes what an operation did.
type Outcome string

const (
	// OutcomeApplied means the event changed the payment as requested.
	OutcomeApplied Outcome = "applied"
	// OutcomePartial means a register-and-confirm recorded the payment but
	// did not confirm it: the amount fell short or the confirmation failed.
	OutcomePartial Outcome = "partial"
	// OutcomeNoop means the payment was already in the requested state.
	OutcomeNoop Outcome = "noop"
)

// Effects are the accounting side effects of a confirmation.
type Effects struct {
	CreditGenerated bool
	CreditAmount    decimal.Decimal
	Credit          *models.Credit

	// ShortfallCarried is the unpaid balance moved to a later payment.
	ShortfallCarried decimal.Decimal

	// DebtAppliedTo is the later payment that received the balance
	// immediately because its cycle already existed. Empty when the balance
	// waits for the next generated cycle.
	DebtAppliedTo string

	// RolledOver is set when the operation reopened a payment whose cycle
	// is no longer current. Its remaining balance moved to DebtAppliedTo and
	// the payment was cancelled as rolled over.
	RolledOver bool
}

// Result is returned by every payment operation.
type Result struct {
	Payment *models.Payment
	From    models.PaymentStatus
	To      models.PaymentStatus
	Outcome Outcome
	Effects Effects

	// Notice is the message the caller should dispatch, nil for no-ops.
	Notice *Notice

	// ConfirmErr is why a register-and-confirm did not reach confirmed.
	// Set only with OutcomePartial.
	ConfirmErr error
}

// Config tunes a Reconciler. Zero values pick the defaults.
type Config struct {
	// MaxOverpayment bounds claims and registrations above the owed balance.
	MaxOverpayment decimal.Decimal

	// DueAfterDays is added to a cycle's period start to get the due date.
	DueAfterDays int

	// Clock returns the current time. Defaults to time.Now in UTC.
	Clock func() time.Time
}

// Reconciler implements the payment operations.
type Reconciler struct {
	store        storage.Store
	machine      ledger.Machine
	clock        func() time.Time
	dueAfterDays int
}

// New creates a Reconciler backed by store.
func New(store storage.Store, cfg Config) *Reconciler {
	if cfg.MaxOverpayment.IsZero() {
		cfg.MaxOverpayment = DefaultMaxOverpayment
	}
	r := &Reconciler{
		store:        store,
		machine:      ledger.NewMachine(cfg.MaxOverpayment),
		clock:        cfg.Clock,
		dueAfterDays: cfg.DueAfterDays,
	}
	if r.clock == nil {
		r.clock = func() time.Time { return time.Now().UTC() }
	}
	if r.dueAfterDays <= 0 {
		r.dueAfterDays = DefaultDueAfterDays
	}
	return r
}

// scope is a payment together with the rows needed to authorize and
// describe an operation on it.
type scope struct {
	payment *models.Payment
	member  *models.Member
	service *models.Service
}

// loadScope reads a payment, its member and its service. The service is
// looked up under the member's owner, which is the payment's owner.
func loadScope(ctx context.Context, tx storage.Queries, op, paymentID string) (*scope, error) {
	p, err := tx.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, translate(op, err)
	}
	m, err := tx.GetMemberByID(ctx, p.MemberID)
	if err != nil {
		return nil, translate(op, err)
	}
	svc, err := tx.GetService(ctx, m.OwnerID, p.ServiceID)
	if err != nil {
		return nil, translate(op, err)
	}
	return &scope{payment: p, member: m, service: svc}, nil
}

// authorizer decides whether the caller may act on the payment in sc.
type authorizer func(sc *scope) error

func ownedBy(op, ownerID string) authorizer {
	return func(sc *scope) error {
		if sc.service.OwnerID != ownerID {
			return ledger.NewError(ledger.KindNotFound, op, "payment %s not found", sc.payment.ID)
		}
		return nil
	}
}

func belongsToMember(op, memberID string) authorizer {
	return func(sc *scope) error {
		if sc.payment.MemberID != memberID {
			return ledger.NewError(ledger.KindNotFound, op, "payment %s not found", sc.payment.ID)
		}
		return nil
	}
}

func linkedToUser(op, userID string) authorizer {
	return func(sc *scope) error {
		if userID == "" || sc.member.UserID != userID {
			return ledger.NewError(ledger.KindNotFound, op, "payment %s not found", sc.payment.ID)
		}
		return nil
	}
}

// apply runs one state machine event against a payment inside a
// transaction and persists the transition with its accounting effects.
func (r *Reconciler) apply(ctx context.Context, op, paymentID string, authorize authorizer, ev ledger.Event) (*Result, error) {
	start := time.Now()
	var res *Result
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		sc, err := loadScope(ctx, tx, op, paymentID)
		if err != nil {
			return err
		}
		if err := authorize(sc); err != nil {
			return err
		}

		now := r.clock()
		t, err := r.machine.Apply(sc.payment, ev, now)
		if err != nil {
			return err
		}
		res = &Result{Payment: t.After, From: t.From, To: t.To, Outcome: OutcomeApplied}
		if t.Noop {
			res.Outcome = OutcomeNoop
			return nil
		}

		if err := tx.UpdatePayment(ctx, t.After); err != nil {
			return translate(op, err)
		}

		switch {
		case t.Confirmed():
			effects, err := r.settle(ctx, tx, op, t.After, *t.Settlement, now)
			if err != nil {
				return err
			}
			res.Effects = effects
		case t.After.Status.IsOpen():
			effects, err := r.rollForward(ctx, tx, op, t.After, now)
			if err != nil {
				return err
			}
			res.Effects = effects
			res.To = t.After.Status
		}

		res.Notice = noticeFor(ev.Type, sc, res)
		return nil
	})
	observe(op, start, res, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// settle writes the debt and credit effects of a confirmation.
func (r *Reconciler) settle(ctx context.Context, tx storage.Queries, op string, p *models.Payment, s ledger.Settlement, now time.Time) (Effects, error) {
	effects := Effects{ShortfallCarried: s.Shortfall}

	if s.CreditGenerated() {
		credit := &models.Credit{
			MemberID:  p.MemberID,
			ServiceID: p.ServiceID,
			PaymentID: p.ID,
			Amount:    s.Overage,
			Remaining: s.Overage,
			Status:    models.CreditAvailable,
			CreatedAt: now.Unix(),
		}
		if err := tx.CreateCredit(ctx, credit); err != nil {
			return Effects{}, translate(op, err)
		}
		effects.CreditGenerated = true
		effects.CreditAmount = s.Overage
		effects.Credit = credit
	}

	if s.HasShortfall() {
		next, err := nextOpenPayment(ctx, tx, p)
		if err != nil {
			return Effects{}, translate(op, err)
		}
		// Without an open later payment the shortfall stays uncarried and
		// the next generated cycle collects it.
		if next != nil {
			next.AccumulatedDebt = next.AccumulatedDebt.Add(s.Shortfall)
			next.UpdatedAt = now.Unix()
			if err := tx.UpdatePayment(ctx, next); err != nil {
				return Effects{}, translate(op, err)
			}
			p.DebtCarried = true
			if err := tx.UpdatePayment(ctx, p); err != nil {
				return Effects{}, translate(op, err)
			}
			effects.DebtAppliedTo = next.ID
		}
	}

	return effects, nil
}

// rollForward handles a payment left open in a cycle that already has a
// successor. Its remaining balance moves to the member's earliest open later
// payment and the payment is cancelled as rolled over, the same way cycle
// generation treats it. p is updated in place. When no open later payment
// exists p stays open and the next generated cycle rolls it over.
func (r *Reconciler) rollForward(ctx context.Context, tx storage.Queries, op string, p *models.Payment, now time.Time) (Effects, error) {
	next, err := nextOpenPayment(ctx, tx, p)
	if err != nil {
		return Effects{}, translate(op, err)
	}
	if next == nil {
		return Effects{}, nil
	}

	balance := ledger.NextCycleDebt(p)
	t, err := r.machine.Apply(p, ledger.Cancel(models.CancelRolledOver), now)
	if err != nil {
		return Effects{}, err
	}
	if err := tx.UpdatePayment(ctx, t.After); err != nil {
		return Effects{}, translate(op, err)
	}
	next.AccumulatedDebt = next.AccumulatedDebt.Add(balance)
	next.UpdatedAt = now.Unix()
	if err := tx.UpdatePayment(ctx, next); err != nil {
		return Effects{}, translate(op, err)
	}

	*p = *t.After
	return Effects{ShortfallCarried: balance, DebtAppliedTo: next.ID, RolledOver: true}, nil
}

// nextOpenPayment returns the member's earliest non-terminal payment on the
// same service in a cycle after p's, or nil when there is none.
func nextOpenPayment(ctx context.Context, tx storage.Queries, p *models.Payment) (*models.Payment, error) {
	payments, err := tx.ListMemberPayments(ctx, p.ServiceID, p.MemberID)
	if err != nil {
		return nil, err
	}

	// newest first: everything before p is from a later cycle, and the last
	// match is the earliest one
	var next *models.Payment
	for _, other := range payments {
		if other.ID == p.ID {
			break
		}
		if other.CycleID == p.CycleID || other.Status.IsTerminal() {
			continue
		}
		next = other
	}
	return next, nil
}

// translate maps storage errors onto ledger errors. Unknown errors pass
// through unchanged and are treated as infrastructure failures.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case ledger.IsDomain(err):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return &ledger.Error{Kind: ledger.KindNotFound, Op: op, Msg: err.Error()}
	case errors.Is(err, storage.ErrVersionConflict), errors.Is(err, storage.ErrDuplicate):
		return &ledger.Error{Kind: ledger.KindConflict, Op: op, Msg: err.Error()}
	case errors.Is(err, storage.ErrInUse):
		return &ledger.Error{Kind: ledger.KindInvalidState, Op: op, Msg: err.Error()}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
