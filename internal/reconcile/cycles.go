package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/calculator"
	"github.com/mmynk/subsplit/internal/ledger"
	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/storage"
)

// OpGenerateCycle names cycle generation in errors and metrics.
const OpGenerateCycle = "generate_cycle"

// CycleResult describes a generated billing cycle.
type CycleResult struct {
	Cycle    *models.BillingCycle
	Payments []*models.Payment

	// RolledOver are earlier payments cancelled because their balance moved
	// into this cycle's accumulated debt.
	RolledOver []*models.Payment

	// CreditsApplied is the total credit consumed by the new payments.
	CreditsApplied decimal.Decimal

	// Existing is true when the cycle had already been generated and
	// nothing was written.
	Existing bool

	Notices []Notice
}

// PeriodStart returns the start of the billing period containing t for a
// service billed on billingDay. Days past the end of a month clamp to its
// last day.
func PeriodStart(billingDay int, t time.Time) time.Time {
	t = t.UTC()
	start := billingDate(t.Year(), t.Month(), billingDay)
	if t.Before(start) {
		prev := time.Date(t.Year(), t.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		start = billingDate(prev.Year(), prev.Month(), billingDay)
	}
	return start
}

// nextPeriodStart returns the start of the period after start.
func nextPeriodStart(billingDay int, start time.Time) time.Time {
	next := time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return billingDate(next.Year(), next.Month(), billingDay)
}

func billingDate(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// GenerateCycle opens the billing period of a service that contains
// periodStart (the current period when periodStart is zero) and creates one
// payment per active member. Each payment starts with the member's earlier
// balance as accumulated debt and has available credits deducted from its
// amount due. The balance is collected from every earlier cycle: unsettled
// payments are cancelled as rolled over and confirmed shortfalls not yet
// carried are marked carried. Generating a period that already exists
// returns it unchanged.
func (r *Reconciler) GenerateCycle(ctx context.Context, ownerID, serviceID string, periodStart time.Time) (*CycleResult, error) {
	start := time.Now()
	var res *CycleResult
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		var err error
		res, err = r.generateCycle(ctx, tx, ownerID, serviceID, periodStart)
		return err
	})
	observeCycle(start, res, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Reconciler) generateCycle(ctx context.Context, tx storage.Queries, ownerID, serviceID string, at time.Time) (*CycleResult, error) {
	const op = OpGenerateCycle

	svc, err := tx.GetService(ctx, ownerID, serviceID)
	if err != nil {
		return nil, translate(op, err)
	}
	if !svc.IsActive() {
		return nil, ledger.NewError(ledger.KindInvalidState, op, "service %s is paused", svc.Name)
	}

	now := r.clock()
	if at.IsZero() {
		at = now
	}
	periodStart := PeriodStart(svc.BillingDay, at)

	existing, err := tx.GetCycleByStart(ctx, serviceID, periodStart)
	switch {
	case err == nil:
		payments, err := tx.ListCyclePayments(ctx, existing.ID)
		if err != nil {
			return nil, translate(op, err)
		}
		return &CycleResult{Cycle: existing, Payments: live(payments), Existing: true, CreditsApplied: decimal.Zero}, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, translate(op, err)
	}

	prevCycle, err := tx.LatestCycle(ctx, serviceID)
	switch {
	case err == nil:
		if !periodStart.After(prevCycle.PeriodStart) {
			return nil, ledger.NewError(ledger.KindInvalidState, op,
				"period %s is not after the latest cycle %s",
				periodStart.Format(time.DateOnly), prevCycle.PeriodStart.Format(time.DateOnly))
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, translate(op, err)
	}

	cycle := &models.BillingCycle{
		ServiceID:   serviceID,
		PeriodStart: periodStart,
		PeriodEnd:   nextPeriodStart(svc.BillingDay, periodStart),
		TotalAmount: svc.MonthlyCost,
		CreatedAt:   now.Unix(),
	}
	if err := tx.CreateCycle(ctx, cycle); err != nil {
		return nil, translate(op, err)
	}

	memberships, err := tx.ListMemberships(ctx, serviceID)
	if err != nil {
		return nil, translate(op, err)
	}
	active := calculator.ActiveMemberCounts(memberships)[serviceID]

	res := &CycleResult{Cycle: cycle, CreditsApplied: decimal.Zero}
	for _, ms := range memberships {
		if !ms.Active {
			continue
		}
		member, err := tx.GetMemberByID(ctx, ms.MemberID)
		if err != nil {
			return nil, translate(op, err)
		}

		debt, rolled, err := r.collectDebt(ctx, tx, serviceID, ms.MemberID, now)
		if err != nil {
			return nil, err
		}
		res.RolledOver = append(res.RolledOver, rolled...)

		p, applied, err := r.newPayment(ctx, tx, svc, cycle, ms, active, debt, now)
		if err != nil {
			return nil, translate(op, err)
		}
		res.CreditsApplied = res.CreditsApplied.Add(applied)
		res.Payments = append(res.Payments, p)
		if p.Status != models.StatusConfirmed {
			res.Notices = append(res.Notices, dueNotice(svc, member, p))
		}
	}

	return res, nil
}

// collectDebt gathers what a member still owes on a service from earlier
// cycles. Open payments are cancelled as rolled over and returned; confirmed
// shortfalls are marked carried.
func (r *Reconciler) collectDebt(ctx context.Context, tx storage.Queries, serviceID, memberID string, now time.Time) (decimal.Decimal, []*models.Payment, error) {
	const op = OpGenerateCycle

	payments, err := tx.ListMemberPayments(ctx, serviceID, memberID)
	if err != nil {
		return decimal.Zero, nil, translate(op, err)
	}

	debt := decimal.Zero
	var rolled []*models.Payment
	for _, p := range payments {
		carry := ledger.NextCycleDebt(p)
		switch {
		case p.Status.IsOpen():
			t, err := r.machine.Apply(p, ledger.Cancel(models.CancelRolledOver), now)
			if err != nil {
				return decimal.Zero, nil, err
			}
			if err := tx.UpdatePayment(ctx, t.After); err != nil {
				return decimal.Zero, nil, translate(op, err)
			}
			rolled = append(rolled, t.After)
		case p.Status == models.StatusConfirmed && carry.IsPositive():
			p.DebtCarried = true
			p.UpdatedAt = now.Unix()
			if err := tx.UpdatePayment(ctx, p); err != nil {
				return decimal.Zero, nil, translate(op, err)
			}
		default:
			continue
		}
		debt = debt.Add(carry)
	}
	return debt, rolled, nil
}

// newPayment creates a member's payment for cycle. A payment whose credits
// cover the whole balance is created already confirmed.
func (r *Reconciler) newPayment(ctx context.Context, tx storage.Queries, svc *models.Service, cycle *models.BillingCycle,
	ms *models.ServiceMembership, active int, debt decimal.Decimal, now time.Time) (*models.Payment, decimal.Decimal, error) {

	share := calculator.MemberShare(svc, ms, active)

	credits, err := tx.ListAvailableCredits(ctx, ms.MemberID, svc.ID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	due, touched := ledger.ApplyCredits(share, credits)
	for _, c := range touched {
		if err := tx.UpdateCredit(ctx, c); err != nil {
			return nil, decimal.Zero, err
		}
	}

	p := &models.Payment{
		CycleID:          cycle.ID,
		ServiceID:        svc.ID,
		MemberID:         ms.MemberID,
		AmountDue:        due,
		AmountPaid:       decimal.Zero,
		AccumulatedDebt:  debt,
		ShortfallCarried: decimal.Zero,
		Status:           models.StatusPending,
		DueDate:          cycle.PeriodStart.AddDate(0, 0, r.dueAfterDays),
		CreatedAt:        now.Unix(),
		UpdatedAt:        now.Unix(),
	}
	if !p.Owed().IsPositive() {
		confirmedAt := now
		p.Status = models.StatusConfirmed
		p.ConfirmedAt = &confirmedAt
	}
	if err := tx.CreatePayment(ctx, p); err != nil {
		return nil, decimal.Zero, err
	}
	return p, share.Sub(due), nil
}

// live drops cancelled payments.
func live(payments []*models.Payment) []*models.Payment {
	out := payments[:0:0]
	for _, p := range payments {
		if p.Status != models.StatusCancelled {
			out = append(out, p)
		}
	}
	return out
}
