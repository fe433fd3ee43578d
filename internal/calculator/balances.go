package calculator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/ledger"
	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/money"
)

// DebtorListLimit is how many entries the pending-debtor list keeps.
const DebtorListLimit = 10

// Dashboard is the owner-level summary.
type Dashboard struct {
	// TotalReceivable is Σ(AmountDue + AccumulatedDebt).
	TotalReceivable decimal.Decimal
	// TotalCollected is Σ AmountPaid over the same payments.
	TotalCollected decimal.Decimal
	// TotalAccumulatedDebt is Σ AccumulatedDebt over the same payments.
	TotalAccumulatedDebt decimal.Decimal
	// TotalOutstanding is Σ(Owed − AmountPaid) over the open payments among
	// them. It equals the sum of the member cards' TotalDebt.
	TotalOutstanding decimal.Decimal

	OverdueCount       int
	PaymentCount       int
	ActiveServiceCount int

	// Debtors is the pending-debtor list, overdue first, largest amount next.
	Debtors []Debtor
}

// Debtor is one (member, service) pair that still owes money.
type Debtor struct {
	MemberID    string
	MemberName  string
	ServiceID   string
	ServiceName string
	PaymentID   string

	Status     models.PaymentStatus
	Overdue    bool
	AmountOwed decimal.Decimal
	DueDate    time.Time
}

// Summarize computes the dashboard for an owner.
//
// All totals come from one working set: non-cancelled payments on active
// services whose membership is active. The debtor list only looks at each
// service's latest cycle.
func Summarize(s *Snapshot, now time.Time) *Dashboard {
	idx := buildIndex(s)
	set := idx.workingSet(s.Payments)

	dash := &Dashboard{
		TotalReceivable:      decimal.Zero,
		TotalCollected:       decimal.Zero,
		TotalAccumulatedDebt: decimal.Zero,
		TotalOutstanding:     decimal.Zero,
		PaymentCount:         len(set),
	}
	for _, svc := range s.Services {
		if svc.IsActive() {
			dash.ActiveServiceCount++
		}
	}

	for _, p := range set {
		dash.TotalReceivable = dash.TotalReceivable.Add(p.Owed())
		dash.TotalCollected = dash.TotalCollected.Add(p.AmountPaid)
		if p.AccumulatedDebt.IsPositive() {
			dash.TotalAccumulatedDebt = dash.TotalAccumulatedDebt.Add(p.AccumulatedDebt)
		}
		status := ledger.DeriveDisplayStatus(p, now)
		if status == models.StatusOverdue {
			dash.OverdueCount++
		}
		if status.IsOpen() {
			dash.TotalOutstanding = dash.TotalOutstanding.Add(money.NonNegative(p.Remaining()))
		}
	}

	debtors := pendingDebtors(idx, idx.liveSet(s.Payments), now)
	if len(debtors) > DebtorListLimit {
		debtors = debtors[:DebtorListLimit]
	}
	dash.Debtors = debtors
	return dash
}

// PendingDebtors returns the full, untruncated pending-debtor list.
func PendingDebtors(s *Snapshot, now time.Time) []Debtor {
	idx := buildIndex(s)
	return pendingDebtors(idx, idx.liveSet(s.Payments), now)
}

func pendingDebtors(idx *index, set []*models.Payment, now time.Time) []Debtor {
	// keep the most recent payment per (member, service)
	latest := make(map[membershipKey]*models.Payment)
	for _, p := range set {
		status := ledger.DeriveDisplayStatus(p, now)
		if !status.IsOpen() {
			continue
		}
		key := membershipKey{p.ServiceID, p.MemberID}
		if cur, ok := latest[key]; ok && !idx.periodOf(p).After(idx.periodOf(cur)) {
			continue
		}
		latest[key] = p
	}

	debtors := make([]Debtor, 0, len(latest))
	for _, p := range latest {
		status := ledger.DeriveDisplayStatus(p, now)
		d := Debtor{
			MemberID:   p.MemberID,
			ServiceID:  p.ServiceID,
			PaymentID:  p.ID,
			Status:     status,
			Overdue:    status == models.StatusOverdue,
			AmountOwed: money.NonNegative(p.Remaining()),
			DueDate:    p.DueDate,
		}
		if m, ok := idx.members[p.MemberID]; ok {
			d.MemberName = m.Name
		}
		if svc, ok := idx.services[p.ServiceID]; ok {
			d.ServiceName = svc.Name
		}
		debtors = append(debtors, d)
	}

	sort.Slice(debtors, func(i, j int) bool {
		a, b := debtors[i], debtors[j]
		if a.Overdue != b.Overdue {
			return a.Overdue
		}
		if !a.AmountOwed.Equal(b.AmountOwed) {
			return a.AmountOwed.GreaterThan(b.AmountOwed)
		}
		if a.MemberName != b.MemberName {
			return a.MemberName < b.MemberName
		}
		return a.ServiceName < b.ServiceName
	})
	return debtors
}
