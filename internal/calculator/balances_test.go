package calculator

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/money"
)

var (
	now  = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	past = now.AddDate(0, 0, -5)
	soon = now.AddDate(0, 0, 5)
)

func dec(s string) decimal.Decimal { return money.MustParse(s) }

func decPtr(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

func payment(id, cycle, service, member string, due, debt, paid string, status models.PaymentStatus, dueDate time.Time) *models.Payment {
	return &models.Payment{
		ID:              id,
		CycleID:         cycle,
		ServiceID:       service,
		MemberID:        member,
		AmountDue:       dec(due),
		AccumulatedDebt: dec(debt),
		AmountPaid:      dec(paid),
		Status:          status,
		DueDate:         dueDate,
	}
}

// fixture builds an owner with two active services, one paused service,
// an inactive membership, a previous cycle and a cancelled duplicate.
func fixture() *Snapshot {
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	return &Snapshot{
		Services: []*models.Service{
			{ID: "netflix", Name: "Netflix", MonthlyCost: dec("300"), SplitType: models.SplitEqual, Status: models.ServiceActive},
			{ID: "spotify", Name: "Spotify", MonthlyCost: dec("16"), SplitType: models.SplitCustom, Status: models.ServiceActive},
			{ID: "hulu", Name: "Hulu", MonthlyCost: dec("90"), SplitType: models.SplitEqual, Status: models.ServicePaused},
		},
		Members: []*models.Member{
			{ID: "d", Name: "Dana"},
			{ID: "a", Name: "Ana"},
			{ID: "c", Name: "Caro"},
			{ID: "b", Name: "Ben"},
		},
		Memberships: []*models.ServiceMembership{
			{ServiceID: "netflix", MemberID: "a", Active: true},
			{ServiceID: "netflix", MemberID: "b", Active: true},
			{ServiceID: "netflix", MemberID: "c", Active: false},
			{ServiceID: "spotify", MemberID: "a", Active: true, CustomAmount: decPtr("5")},
			{ServiceID: "spotify", MemberID: "d", Active: true, CustomAmount: decPtr("6")},
			{ServiceID: "hulu", MemberID: "b", Active: true},
		},
		Cycles: []*models.BillingCycle{
			{ID: "netflix-mar", ServiceID: "netflix", PeriodStart: mar},
			{ID: "netflix-feb", ServiceID: "netflix", PeriodStart: feb},
			{ID: "spotify-mar", ServiceID: "spotify", PeriodStart: mar},
			{ID: "hulu-mar", ServiceID: "hulu", PeriodStart: mar},
		},
		Payments: []*models.Payment{
			payment("p-a-feb", "netflix-feb", "netflix", "a", "100", "0", "100", models.StatusConfirmed, feb),
			payment("p-b-feb", "netflix-feb", "netflix", "b", "100", "0", "80", models.StatusConfirmed, feb),
			payment("p-a", "netflix-mar", "netflix", "a", "100", "0", "0", models.StatusPending, past),
			payment("p-a-dup", "netflix-mar", "netflix", "a", "100", "0", "0", models.StatusCancelled, past),
			payment("p-b", "netflix-mar", "netflix", "b", "100", "20", "30", models.StatusPartial, soon),
			payment("p-c", "netflix-mar", "netflix", "c", "100", "0", "0", models.StatusPending, past),
			payment("p-a-spot", "spotify-mar", "spotify", "a", "5", "0", "5", models.StatusPaid, soon),
			payment("p-d-spot", "spotify-mar", "spotify", "d", "6", "4", "0", models.StatusPending, soon),
			payment("p-b-hulu", "hulu-mar", "hulu", "b", "45", "0", "0", models.StatusPending, past),
		},
	}
}

func TestSummarize(t *testing.T) {
	dash := Summarize(fixture(), now)

	// February's confirmed payments count towards the totals as well
	assert.True(t, dash.TotalReceivable.Equal(dec("435")), "receivable = %s", dash.TotalReceivable)
	assert.True(t, dash.TotalCollected.Equal(dec("215")), "collected = %s", dash.TotalCollected)
	assert.True(t, dash.TotalAccumulatedDebt.Equal(dec("24")), "debt = %s", dash.TotalAccumulatedDebt)
	assert.True(t, dash.TotalOutstanding.Equal(dec("200")), "outstanding = %s", dash.TotalOutstanding)
	assert.Equal(t, 1, dash.OverdueCount)
	assert.Equal(t, 6, dash.PaymentCount)
	assert.Equal(t, 2, dash.ActiveServiceCount)

	require.Len(t, dash.Debtors, 3)
	assert.Equal(t, "p-a", dash.Debtors[0].PaymentID)
	assert.True(t, dash.Debtors[0].Overdue)
	assert.Equal(t, models.StatusOverdue, dash.Debtors[0].Status)
	assert.Equal(t, "Ana", dash.Debtors[0].MemberName)
	assert.Equal(t, "Netflix", dash.Debtors[0].ServiceName)
	assert.True(t, dash.Debtors[0].AmountOwed.Equal(dec("100")))

	assert.Equal(t, "p-b", dash.Debtors[1].PaymentID)
	assert.True(t, dash.Debtors[1].AmountOwed.Equal(dec("90")))
	assert.Equal(t, "p-d-spot", dash.Debtors[2].PaymentID)
	assert.True(t, dash.Debtors[2].AmountOwed.Equal(dec("10")))
}

func TestSummarize_TotalsShareOneWorkingSet(t *testing.T) {
	s := fixture()
	idx := buildIndex(s)
	set := idx.workingSet(s.Payments)
	dash := Summarize(s, now)

	receivable, collected := decimal.Zero, decimal.Zero
	for _, p := range set {
		receivable = receivable.Add(p.Owed())
		collected = collected.Add(p.AmountPaid)
	}
	assert.True(t, dash.TotalReceivable.Equal(receivable))
	assert.True(t, dash.TotalCollected.Equal(collected))
	assert.Equal(t, len(set), dash.PaymentCount)
}

func TestSummarize_AgreesWithMemberCards(t *testing.T) {
	s := fixture()
	// an open payment left behind in an earlier cycle
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	s.Cycles = append(s.Cycles, &models.BillingCycle{ID: "spotify-feb", ServiceID: "spotify", PeriodStart: feb})
	s.Payments = append(s.Payments,
		payment("p-d-spot-feb", "spotify-feb", "spotify", "d", "6", "0", "0", models.StatusPending, feb))

	dash := Summarize(s, now)
	cards := MemberCards(s, now)

	carded := decimal.Zero
	for _, c := range cards {
		carded = carded.Add(c.TotalDebt)
	}
	assert.True(t, dash.TotalOutstanding.Equal(carded), "dashboard %s, cards %s", dash.TotalOutstanding, carded)
	assert.True(t, dash.TotalOutstanding.Equal(dec("206")), "outstanding = %s", dash.TotalOutstanding)
	assert.True(t, dash.TotalReceivable.Equal(dec("441")), "receivable = %s", dash.TotalReceivable)
	assert.Equal(t, 2, dash.OverdueCount)

	// the debtor list still shows one entry per pair from the current cycle
	for _, d := range dash.Debtors {
		assert.NotEqual(t, "p-d-spot-feb", d.PaymentID)
	}
	assert.Len(t, dash.Debtors, 3)
}

func TestSummarize_EmptyLedger(t *testing.T) {
	dash := Summarize(&Snapshot{}, now)
	assert.True(t, dash.TotalReceivable.IsZero())
	assert.True(t, dash.TotalCollected.IsZero())
	assert.True(t, dash.TotalOutstanding.IsZero())
	assert.Empty(t, dash.Debtors)
}

func TestPendingDebtors_Dedup(t *testing.T) {
	s := fixture()
	// a second live payment for the same pair must not produce a second entry
	s.Payments = append(s.Payments,
		payment("p-b-dup", "netflix-mar", "netflix", "b", "100", "0", "0", models.StatusPending, soon))

	debtors := PendingDebtors(s, now)
	seen := make(map[string]bool)
	for _, d := range debtors {
		key := d.MemberID + "/" + d.ServiceID
		assert.False(t, seen[key], "duplicate entry for %s", key)
		seen[key] = true
	}
	assert.Len(t, debtors, 3)
}

func TestPendingDebtors_OrderAndLimit(t *testing.T) {
	mar := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := &Snapshot{
		Services: []*models.Service{{ID: "svc", Name: "Svc", MonthlyCost: dec("1000"), SplitType: models.SplitEqual, Status: models.ServiceActive}},
		Cycles:   []*models.BillingCycle{{ID: "cyc", ServiceID: "svc", PeriodStart: mar}},
	}
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("m%02d", i)
		s.Members = append(s.Members, &models.Member{ID: id, Name: id})
		s.Memberships = append(s.Memberships, &models.ServiceMembership{ServiceID: "svc", MemberID: id, Active: true})
		due := soon
		if i%5 == 0 {
			due = past
		}
		s.Payments = append(s.Payments,
			payment("p"+id, "cyc", "svc", id, fmt.Sprintf("%d", 10+i), "0", "0", models.StatusPending, due))
	}

	all := PendingDebtors(s, now)
	require.Len(t, all, 15)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.Overdue == cur.Overdue {
			assert.True(t, prev.AmountOwed.GreaterThanOrEqual(cur.AmountOwed))
		} else {
			assert.True(t, prev.Overdue, "overdue entries must come first")
		}
	}
	assert.Equal(t, "m10", all[0].MemberID)

	dash := Summarize(s, now)
	assert.Len(t, dash.Debtors, DebtorListLimit)
	assert.Equal(t, 3, dash.OverdueCount)
}

func TestMemberCards(t *testing.T) {
	cards := MemberCards(fixture(), now)
	require.Len(t, cards, 4)

	names := []string{cards[0].Member.Name, cards[1].Member.Name, cards[2].Member.Name, cards[3].Member.Name}
	assert.Equal(t, []string{"Ana", "Ben", "Caro", "Dana"}, names)

	ana := cards[0]
	require.Len(t, ana.Services, 2)
	assert.Equal(t, "Netflix", ana.Services[0].ServiceName)
	assert.True(t, ana.Services[0].DueAmount.Equal(dec("100")))
	assert.Equal(t, models.StatusOverdue, ana.Services[0].LatestStatus)
	assert.Equal(t, "p-a", ana.Services[0].LatestPaymentID)
	assert.Equal(t, "Spotify", ana.Services[1].ServiceName)
	assert.True(t, ana.Services[1].DueAmount.Equal(dec("5")))
	assert.Equal(t, models.StatusPaid, ana.Services[1].LatestStatus)
	assert.True(t, ana.MonthlyAmount.Equal(dec("105")))
	assert.True(t, ana.TotalDebt.Equal(dec("100")), "ana debt = %s", ana.TotalDebt)

	ben := cards[1]
	require.Len(t, ben.Services, 1, "paused services are left out")
	assert.Equal(t, models.StatusPartial, ben.Services[0].LatestStatus)
	assert.True(t, ben.TotalDebt.Equal(dec("90")))
	assert.True(t, ben.MonthlyAmount.Equal(dec("100")))

	caro := cards[2]
	assert.Empty(t, caro.Services)
	assert.True(t, caro.TotalDebt.IsZero())
	assert.True(t, caro.MonthlyAmount.IsZero())

	dana := cards[3]
	assert.True(t, dana.TotalDebt.Equal(dec("10")))
	assert.True(t, dana.MonthlyAmount.Equal(dec("6")))
}

func TestMemberCards_RecomputeIsStable(t *testing.T) {
	s := fixture()
	first := MemberCards(s, now)
	second := MemberCards(s, now)
	for i := range first {
		assert.True(t, first[i].TotalDebt.Equal(second[i].TotalDebt))
		assert.True(t, first[i].MonthlyAmount.Equal(second[i].MonthlyAmount))
	}
}
