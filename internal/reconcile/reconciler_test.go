package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/subsplit/internal/ledger"
	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/money"
	"github.com/mmynk/subsplit/internal/storage"
	"github.com/mmynk/subsplit/internal/storage/sqlite"
)

const owner = "owner-1"

var (
	march = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	april = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return money.MustParse(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	ctx   context.Context
	r     *Reconciler
	store *sqlite.SQLiteStore
	clock *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	r := New(store, Config{MaxOverpayment: dec("10000"), Clock: clock.Now})
	return &fixture{ctx: context.Background(), r: r, store: store, clock: clock}
}

func (f *fixture) member(t *testing.T, name string) *models.Member {
	t.Helper()
	m, err := f.r.CreateMember(f.ctx, owner, &models.Member{Name: name})
	require.NoError(t, err)
	return m
}

// service creates an equal-split service billed on the 1st with the given
// members and returns it with each member's payment in the March cycle.
func (f *fixture) service(t *testing.T, name, cost string, members ...*models.Member) (*models.Service, map[string]*models.Payment) {
	t.Helper()
	var nms []NewMembership
	for _, m := range members {
		nms = append(nms, NewMembership{MemberID: m.ID})
	}
	svc, cycle, err := f.r.CreateService(f.ctx, owner, &models.Service{
		Name:        name,
		MonthlyCost: dec(cost),
		BillingDay:  1,
		SplitType:   models.SplitEqual,
	}, nms...)
	require.NoError(t, err)
	require.True(t, cycle.Cycle.PeriodStart.Equal(march))
	return svc, byMember(cycle.Payments)
}

func (f *fixture) payment(t *testing.T, id string) *models.Payment {
	t.Helper()
	p, err := f.store.GetPayment(f.ctx, id)
	require.NoError(t, err)
	return p
}

func byMember(payments []*models.Payment) map[string]*models.Payment {
	out := make(map[string]*models.Payment, len(payments))
	for _, p := range payments {
		out[p.MemberID] = p
	}
	return out
}

func requireKind(t *testing.T, err error, kind ledger.Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := ledger.KindOf(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	assert.Equal(t, kind, got, "error: %v", err)
}

func TestScenario_ClaimConfirmRejectRegister(t *testing.T) {
	f := newFixture(t)
	a, b := f.member(t, "Ana"), f.member(t, "Ben")
	svc, payments := f.service(t, "Netflix", "300", a, b)
	pa, pb := payments[a.ID], payments[b.ID]
	assertDec(t, "100", pa.AmountDue)
	assertDec(t, "100", pb.AmountDue)

	// A claims and the owner confirms the exact amount
	res, err := f.r.ClaimPayment(f.ctx, a.ID, pa.ID, dec("100"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, res.To)
	require.NotNil(t, res.Notice)
	assert.Equal(t, NoticeClaimSubmitted, res.Notice.Kind)
	assert.Equal(t, RecipientOwner, res.Notice.Recipient.Kind)

	res, err = f.r.ConfirmPayment(f.ctx, owner, pa.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.StatusConfirmed, res.To)
	assert.False(t, res.Effects.CreditGenerated)
	assert.True(t, res.Effects.ShortfallCarried.IsZero())
	stored := f.payment(t, pa.ID)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	assert.NotNil(t, stored.ConfirmedAt)

	// B claims 60, the owner rejects it
	_, err = f.r.ClaimPayment(f.ctx, b.ID, pb.ID, dec("60"))
	require.NoError(t, err)
	res, err = f.r.RejectClaim(f.ctx, owner, pb.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, res.To)
	stored = f.payment(t, pb.ID)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.True(t, stored.AmountPaid.IsZero())
	assert.Nil(t, stored.PaidAt)
	assert.Nil(t, stored.Claim)

	// the owner registers 150 for B: confirmed with a credit of 50
	res, err = f.r.RegisterPayment(f.ctx, owner, pb.ID, dec("150"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, res.To)
	assert.True(t, res.Effects.CreditGenerated)
	assertDec(t, "50", res.Effects.CreditAmount)
	require.NotNil(t, res.Effects.Credit)
	assert.Equal(t, svc.ID, res.Effects.Credit.ServiceID)
	assert.Equal(t, b.ID, res.Effects.Credit.MemberID)

	stored = f.payment(t, pb.ID)
	// capped at the owed balance, the rest became credit
	assertDec(t, "100", stored.AmountPaid)

	credits, err := f.store.ListCreditsByPayment(f.ctx, pb.ID)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assertDec(t, "50", credits[0].Remaining)
	assert.Equal(t, models.CreditAvailable, credits[0].Status)

	// the credit reduces B's next cycle
	next, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, april)
	require.NoError(t, err)
	assertDec(t, "50", next.CreditsApplied)
	nextPayments := byMember(next.Payments)
	assertDec(t, "100", nextPayments[a.ID].AmountDue)
	assertDec(t, "50", nextPayments[b.ID].AmountDue)
	assert.True(t, nextPayments[b.ID].AccumulatedDebt.IsZero())

	credits, _ = f.store.ListCreditsByPayment(f.ctx, pb.ID)
	assert.Equal(t, models.CreditConsumed, credits[0].Status)
	assert.Empty(t, next.RolledOver)
}

func TestScenario_OverdueConfirmCarriesDebt(t *testing.T) {
	f := newFixture(t)
	c := f.member(t, "Caro")
	svc, payments := f.service(t, "Spotify", "200", c)
	pc := payments[c.ID]
	assertDec(t, "100", pc.AmountDue)

	// due on the 8th, now is the 10th
	assert.Equal(t, models.StatusOverdue, ledger.DeriveDisplayStatus(f.payment(t, pc.ID), f.clock.Now()))

	// a short amount is recorded but not confirmed
	res, err := f.r.RegisterAndConfirm(f.ctx, owner, pc.ID, dec("40"))
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, models.StatusPending, res.From)
	assert.Equal(t, models.StatusPartial, res.To)
	requireKind(t, res.ConfirmErr, ledger.KindInvalidAmount)
	assert.Equal(t, models.StatusPartial, f.payment(t, pc.ID).Status)

	// the owner accepts it as final
	res, err = f.r.ConfirmPayment(f.ctx, owner, pc.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.StatusConfirmed, res.To)
	assertDec(t, "60", res.Effects.ShortfallCarried)
	assert.Empty(t, res.Effects.DebtAppliedTo)

	stored := f.payment(t, pc.ID)
	assertDec(t, "60", stored.ShortfallCarried)
	assertDec(t, "40", stored.AmountPaid)
	assert.False(t, stored.DebtCarried)

	next, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, april)
	require.NoError(t, err)
	require.Len(t, next.Payments, 1)
	assertDec(t, "100", next.Payments[0].AmountDue)
	assertDec(t, "60", next.Payments[0].AccumulatedDebt)
	assertDec(t, "160", next.Payments[0].Owed())
	assert.True(t, f.payment(t, pc.ID).DebtCarried)
}

// failingStore fails every transaction after the first failAt-1.
type failingStore struct {
	storage.Store
	calls  int
	failAt int
}

func (s *failingStore) WithTx(ctx context.Context, fn func(tx storage.Queries) error) error {
	s.calls++
	if s.calls >= s.failAt {
		return errors.New("database is locked")
	}
	return s.Store.WithTx(ctx, fn)
}

func TestRegisterAndConfirm(t *testing.T) {
	t.Run("covering amount is confirmed", func(t *testing.T) {
		f := newFixture(t)
		a := f.member(t, "Ana")
		_, payments := f.service(t, "Netflix", "200", a)
		id := payments[a.ID].ID

		res, err := f.r.RegisterAndConfirm(f.ctx, owner, id, dec("100"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, res.Outcome)
		assert.Equal(t, models.StatusPending, res.From)
		assert.Equal(t, models.StatusConfirmed, res.To)
		assert.NoError(t, res.ConfirmErr)
		require.NotNil(t, res.Notice)
		assert.Equal(t, NoticePaymentConfirmed, res.Notice.Kind)
		assert.Equal(t, models.StatusConfirmed, f.payment(t, id).Status)
	})

	t.Run("short amount stays partial", func(t *testing.T) {
		f := newFixture(t)
		a := f.member(t, "Ana")
		_, payments := f.service(t, "Netflix", "200", a)
		id := payments[a.ID].ID

		res, err := f.r.RegisterAndConfirm(f.ctx, owner, id, dec("30"))
		require.NoError(t, err)
		assert.Equal(t, OutcomePartial, res.Outcome)
		assert.Equal(t, models.StatusPartial, res.To)
		requireKind(t, res.ConfirmErr, ledger.KindInvalidAmount)

		stored := f.payment(t, id)
		assert.Equal(t, models.StatusPartial, stored.Status)
		assertDec(t, "30", stored.AmountPaid)
		assert.Nil(t, stored.ConfirmedAt)
		assert.True(t, stored.ShortfallCarried.IsZero())
	})

	t.Run("failed confirmation leaves the payment paid", func(t *testing.T) {
		f := newFixture(t)
		a := f.member(t, "Ana")
		_, payments := f.service(t, "Netflix", "200", a)
		id := payments[a.ID].ID

		f.r.store = &failingStore{Store: f.store, failAt: 2}
		res, err := f.r.RegisterAndConfirm(f.ctx, owner, id, dec("100"))
		require.NoError(t, err)
		assert.Equal(t, OutcomePartial, res.Outcome)
		assert.Equal(t, models.StatusPaid, res.To)
		assert.Error(t, res.ConfirmErr)

		stored := f.payment(t, id)
		assert.Equal(t, models.StatusPaid, stored.Status)
		assertDec(t, "100", stored.AmountPaid)
		assert.True(t, stored.RequiresConfirmation)

		// confirming later finishes the job
		f.r.store = f.store
		res, err = f.r.ConfirmPayment(f.ctx, owner, id)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, res.Outcome)
		assert.Equal(t, models.StatusConfirmed, res.To)
	})
}

func TestClaimPayment_Errors(t *testing.T) {
	f := newFixture(t)
	a, b := f.member(t, "Ana"), f.member(t, "Ben")
	_, payments := f.service(t, "Netflix", "300", a, b)
	pa := payments[a.ID]

	tests := []struct {
		name     string
		memberID string
		amount   string
		kind     ledger.Kind
	}{
		{"another member's payment", b.ID, "100", ledger.KindNotFound},
		{"zero amount", a.ID, "0", ledger.KindInvalidAmount},
		{"negative amount", a.ID, "-5", ledger.KindInvalidAmount},
		{"three decimals", a.ID, "10.005", ledger.KindInvalidAmount},
		{"above the overpayment bound", a.ID, "10100.01", ledger.KindInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.r.ClaimPayment(f.ctx, tt.memberID, pa.ID, dec(tt.amount))
			requireKind(t, err, tt.kind)
		})
	}

	t.Run("unknown payment", func(t *testing.T) {
		_, err := f.r.ClaimPayment(f.ctx, a.ID, "missing", dec("1"))
		requireKind(t, err, ledger.KindNotFound)
	})

	t.Run("confirmed payment", func(t *testing.T) {
		_, err := f.r.RegisterPayment(f.ctx, owner, pa.ID, dec("100"))
		require.NoError(t, err)
		_, err = f.r.ClaimPayment(f.ctx, a.ID, pa.ID, dec("100"))
		requireKind(t, err, ledger.KindInvalidState)
		assert.Equal(t, models.StatusConfirmed, f.payment(t, pa.ID).Status)
	})
}

func TestClaimPaymentAsUser(t *testing.T) {
	f := newFixture(t)
	a, b := f.member(t, "Ana"), f.member(t, "Ben")
	_, payments := f.service(t, "Netflix", "300", a, b)

	a.UserID = "user-ana"
	_, err := f.r.UpdateMember(f.ctx, owner, a)
	require.NoError(t, err)

	res, err := f.r.ClaimPaymentAsUser(f.ctx, "user-ana", payments[a.ID].ID, dec("100"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, res.To)

	_, err = f.r.ClaimPaymentAsUser(f.ctx, "user-ana", payments[b.ID].ID, dec("100"))
	requireKind(t, err, ledger.KindNotFound)

	views, err := f.r.PaymentsForUser(f.ctx, "user-ana")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, payments[a.ID].ID, views[0].Payment.ID)
	assert.Equal(t, models.StatusPaid, views[0].DisplayStatus)
}

func TestOwnerOperations_RequireOwnership(t *testing.T) {
	f := newFixture(t)
	a := f.member(t, "Ana")
	_, payments := f.service(t, "Netflix", "300", a)
	id := payments[a.ID].ID

	_, err := f.r.RegisterPayment(f.ctx, "owner-2", id, dec("10"))
	requireKind(t, err, ledger.KindNotFound)
	_, err = f.r.ConfirmPayment(f.ctx, "owner-2", id)
	requireKind(t, err, ledger.KindNotFound)
	_, err = f.r.RejectClaim(f.ctx, "owner-2", id)
	requireKind(t, err, ledger.KindNotFound)
	_, err = f.r.CancelPayment(f.ctx, "owner-2", id, models.CancelDuplicate)
	requireKind(t, err, ledger.KindNotFound)
}

func TestConfirmPayment_States(t *testing.T) {
	f := newFixture(t)
	a := f.member(t, "Ana")
	_, payments := f.service(t, "Netflix", "200", a)
	id := payments[a.ID].ID

	_, err := f.r.ConfirmPayment(f.ctx, owner, id)
	requireKind(t, err, ledger.KindInvalidState)

	_, err = f.r.ClaimPayment(f.ctx, a.ID, id, dec("120"))
	require.NoError(t, err)

	first, err := f.r.ConfirmPayment(f.ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Outcome)
	assertDec(t, "20", first.Effects.CreditAmount)

	second, err := f.r.ConfirmPayment(f.ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, second.Outcome)
	assert.False(t, second.Effects.CreditGenerated)
	assert.Nil(t, second.Notice)

	credits, err := f.store.ListCreditsByPayment(f.ctx, id)
	require.NoError(t, err)
	assert.Len(t, credits, 1, "a repeated confirm must not create a second credit")

	_, err = f.r.RejectClaim(f.ctx, owner, id)
	requireKind(t, err, ledger.KindInvalidState)
	_, err = f.r.CancelPayment(f.ctx, owner, id, models.CancelDuplicate)
	requireKind(t, err, ledger.KindInvalidState)
}

func TestConfirmPayment_Concurrent(t *testing.T) {
	f := newFixture(t)
	a := f.member(t, "Ana")
	_, payments := f.service(t, "Netflix", "200", a)
	id := payments[a.ID].ID

	_, err := f.r.ClaimPayment(f.ctx, a.ID, id, dec("150"))
	require.NoError(t, err)

	const workers = 4
	results := make([]*Result, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.r.ConfirmPayment(f.ctx, owner, id)
		}(i)
	}
	wg.Wait()

	applied := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Outcome == OutcomeApplied {
			applied++
		} else {
			assert.Equal(t, OutcomeNoop, results[i].Outcome)
		}
	}
	assert.Equal(t, 1, applied)

	credits, err := f.store.ListCreditsByPayment(f.ctx, id)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assertDec(t, "50", credits[0].Amount)
}

func TestRejectClaim_RestoresPriorState(t *testing.T) {
	f := newFixture(t)
	a := f.member(t, "Ana")
	_, payments := f.service(t, "Netflix", "200", a)
	id := payments[a.ID].ID

	_, err := f.r.RegisterPayment(f.ctx, owner, id, dec("30"))
	require.NoError(t, err)
	before := f.payment(t, id)
	require.Equal(t, models.StatusPartial, before.Status)

	f.clock.Set(f.clock.Now().Add(24 * time.Hour))
	_, err = f.r.ClaimPayment(f.ctx, a.ID, id, dec("100"))
	require.NoError(t, err)

	res, err := f.r.RejectClaim(f.ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, res.To)

	after := f.payment(t, id)
	assert.Equal(t, before.Status, after.Status)
	assert.True(t, before.AmountPaid.Equal(after.AmountPaid))
	require.NotNil(t, after.PaidAt)
	assert.True(t, before.PaidAt.Equal(*after.PaidAt))
	assert.False(t, after.RequiresConfirmation)
}

func TestRegisterPayment_IsNotAdditive(t *testing.T) {
	f := newFixture(t)
	a := f.member(t, "Ana")
	_, payments := f.service(t, "Netflix", "200", a)
	id := payments[a.ID].ID

	res, err := f.r.RegisterPayment(f.ctx, owner, id, dec("30"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, res.To)

	res, err = f.r.RegisterPayment(f.ctx, owner, id, dec("50"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, res.To)
	assertDec(t, "50", f.payment(t, id).AmountPaid)

	// within epsilon of the balance counts as paid in full
	res, err = f.r.RegisterPayment(f.ctx, owner, id, dec("99.99"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, res.To)
	res, err = f.r.RegisterPayment(f.ctx, owner, id, dec("100"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, res.To)
	assert.True(t, res.Effects.ShortfallCarried.IsZero())
}

func TestCancelPayment(t *testing.T) {
	f := newFixture(t)
	a := f.member(t, "Ana")
	_, payments := f.service(t, "Netflix", "200", a)
	id := payments[a.ID].ID

	res, err := f.r.CancelPayment(f.ctx, owner, id, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, res.To)
	assert.Equal(t, NoticePaymentCancelled, res.Notice.Kind)
	assert.Equal(t, models.CancelDuplicate, f.payment(t, id).CancelReason)

	_, err = f.r.ClaimPayment(f.ctx, a.ID, id, dec("100"))
	requireKind(t, err, ledger.KindInvalidState)
}

func TestGenerateCycle(t *testing.T) {
	t.Run("unsettled payments roll over", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.member(t, "Ana"), f.member(t, "Ben")
		svc, payments := f.service(t, "Netflix", "300", a, b)

		_, err := f.r.RegisterPayment(f.ctx, owner, payments[b.ID].ID, dec("30"))
		require.NoError(t, err)

		next, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, april)
		require.NoError(t, err)
		assert.False(t, next.Existing)
		require.Len(t, next.RolledOver, 2)
		for _, p := range next.RolledOver {
			assert.Equal(t, models.StatusCancelled, p.Status)
			assert.Equal(t, models.CancelRolledOver, p.CancelReason)
		}

		nextPayments := byMember(next.Payments)
		assertDec(t, "100", nextPayments[a.ID].AccumulatedDebt)
		assertDec(t, "70", nextPayments[b.ID].AccumulatedDebt)
		assert.True(t, nextPayments[a.ID].DueDate.Equal(april.AddDate(0, 0, DefaultDueAfterDays)))
		assert.Len(t, next.Notices, 2)
		assert.Equal(t, NoticePaymentDue, next.Notices[0].Kind)
	})

	t.Run("late confirmation reaches the next cycle", func(t *testing.T) {
		f := newFixture(t)
		a := f.member(t, "Ana")
		svc, payments := f.service(t, "Netflix", "200", a)
		claimed := payments[a.ID]

		_, err := f.r.ClaimPayment(f.ctx, a.ID, claimed.ID, dec("60"))
		require.NoError(t, err)

		next, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, april)
		require.NoError(t, err)
		assert.Empty(t, next.RolledOver, "claimed payments wait for the owner")
		aprilPayment := next.Payments[0]
		assert.True(t, aprilPayment.AccumulatedDebt.IsZero())

		res, err := f.r.ConfirmPayment(f.ctx, owner, claimed.ID)
		require.NoError(t, err)
		assertDec(t, "40", res.Effects.ShortfallCarried)
		assert.Equal(t, aprilPayment.ID, res.Effects.DebtAppliedTo)

		assertDec(t, "40", f.payment(t, aprilPayment.ID).AccumulatedDebt)
	})

	t.Run("late shortfall waits when the next payment is settled", func(t *testing.T) {
		f := newFixture(t)
		a := f.member(t, "Ana")
		svc, payments := f.service(t, "Netflix", "200", a)
		claimed := payments[a.ID]

		_, err := f.r.ClaimPayment(f.ctx, a.ID, claimed.ID, dec("60"))
		require.NoError(t, err)
		next, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, april)
		require.NoError(t, err)
		_, err = f.r.RegisterPayment(f.ctx, owner, next.Payments[0].ID, dec("100"))
		require.NoError(t, err)

		res, err := f.r.ConfirmPayment(f.ctx, owner, claimed.ID)
		require.NoError(t, err)
		assertDec(t, "40", res.Effects.ShortfallCarried)
		assert.Empty(t, res.Effects.DebtAppliedTo)
		assert.False(t, f.payment(t, claimed.ID).DebtCarried)

		may, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, april.AddDate(0, 1, 0))
		require.NoError(t, err)
		require.Len(t, may.Payments, 1)
		assertDec(t, "40", may.Payments[0].AccumulatedDebt)
		assert.True(t, f.payment(t, claimed.ID).DebtCarried)

		// the unpaid May balance already holds the shortfall
		june, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, april.AddDate(0, 2, 0))
		require.NoError(t, err)
		assertDec(t, "140", june.Payments[0].AccumulatedDebt)
	})

	t.Run("rejected claim rolls into the next cycle", func(t *testing.T) {
		f := newFixture(t)
		a := f.member(t, "Ana")
		svc, payments := f.service(t, "Netflix", "200", a)
		claimed := payments[a.ID]

		_, err := f.r.ClaimPayment(f.ctx, a.ID, claimed.ID, dec("60"))
		require.NoError(t, err)
		next, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, april)
		require.NoError(t, err)
		aprilPayment := next.Payments[0]

		res, err := f.r.RejectClaim(f.ctx, owner, claimed.ID)
		require.NoError(t, err)
		assert.True(t, res.Effects.RolledOver)
		assert.Equal(t, models.StatusCancelled, res.To)
		assert.Equal(t, aprilPayment.ID, res.Effects.DebtAppliedTo)
		assertDec(t, "100", res.Effects.ShortfallCarried)

		stored := f.payment(t, claimed.ID)
		assert.Equal(t, models.StatusCancelled, stored.Status)
		assert.Equal(t, models.CancelRolledOver, stored.CancelReason)
		assertDec(t, "100", f.payment(t, aprilPayment.ID).AccumulatedDebt)

		dash, err := f.r.Dashboard(f.ctx, owner)
		require.NoError(t, err)
		cards, err := f.r.MemberCards(f.ctx, owner)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assertDec(t, "200", dash.TotalOutstanding)
		assertDec(t, "200", cards[0].TotalDebt)

		may, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, april.AddDate(0, 1, 0))
		require.NoError(t, err)
		require.Len(t, may.RolledOver, 1)
		assert.Equal(t, aprilPayment.ID, may.RolledOver[0].ID)
		assertDec(t, "200", may.Payments[0].AccumulatedDebt)
	})

	t.Run("existing period is returned unchanged", func(t *testing.T) {
		f := newFixture(t)
		a := f.member(t, "Ana")
		svc, payments := f.service(t, "Netflix", "200", a)

		again, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, march.AddDate(0, 0, 14))
		require.NoError(t, err)
		assert.True(t, again.Existing)
		require.Len(t, again.Payments, 1)
		assert.Equal(t, payments[a.ID].ID, again.Payments[0].ID)
	})

	t.Run("earlier period is rejected", func(t *testing.T) {
		f := newFixture(t)
		svc, _ := f.service(t, "Netflix", "200", f.member(t, "Ana"))

		_, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, march.AddDate(0, -1, 0))
		requireKind(t, err, ledger.KindInvalidState)
	})

	t.Run("paused service is rejected", func(t *testing.T) {
		f := newFixture(t)
		svc, _ := f.service(t, "Netflix", "200", f.member(t, "Ana"))

		paused := models.ServicePaused
		_, err := f.r.UpdateService(f.ctx, owner, svc.ID, ServiceUpdate{Status: &paused})
		require.NoError(t, err)

		_, err = f.r.GenerateCycle(f.ctx, owner, svc.ID, april)
		requireKind(t, err, ledger.KindInvalidState)
	})

	t.Run("credits covering the whole share confirm the payment", func(t *testing.T) {
		f := newFixture(t)
		a := f.member(t, "Ana")
		svc, payments := f.service(t, "Netflix", "200", a)

		_, err := f.r.RegisterPayment(f.ctx, owner, payments[a.ID].ID, dec("250"))
		require.NoError(t, err)

		next, err := f.r.GenerateCycle(f.ctx, owner, svc.ID, april)
		require.NoError(t, err)
		p := next.Payments[0]
		assert.True(t, p.AmountDue.IsZero())
		assert.Equal(t, models.StatusConfirmed, p.Status)
		assert.Empty(t, next.Notices)
	})
}

func TestPeriodStart(t *testing.T) {
	tests := []struct {
		name string
		day  int
		at   time.Time
		want time.Time
	}{
		{"same month", 5, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"before billing day", 15, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)},
		{"clamped to short month", 31, time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"clamped previous month", 31, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PeriodStart(tt.day, tt.at)
			assert.True(t, got.Equal(tt.want), "got %s", got)
		})
	}
	assert.True(t, nextPeriodStart(31, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)).Equal(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)))
}

func TestMemberships(t *testing.T) {
	f := newFixture(t)
	a, b := f.member(t, "Ana"), f.member(t, "Ben")
	svc, payments := f.service(t, "Netflix", "300", a, b)

	t.Run("joining mid-cycle creates a payment", func(t *testing.T) {
		e := f.member(t, "Eli")
		res, err := f.r.SetMembership(f.ctx, owner, svc.ID, e.ID, nil)
		require.NoError(t, err)
		require.NotNil(t, res.Payment)
		assertDec(t, "75", res.Payment.AmountDue)
		require.NotNil(t, res.Notice)
		assert.Equal(t, e.Email, res.Notice.Recipient.Email)

		// saving again does not add a second payment
		res, err = f.r.SetMembership(f.ctx, owner, svc.ID, e.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, res.Payment)
	})

	t.Run("negative custom amount is rejected", func(t *testing.T) {
		neg := dec("-1")
		_, err := f.r.SetMembership(f.ctx, owner, svc.ID, a.ID, &neg)
		requireKind(t, err, ledger.KindInvalidAmount)
	})

	t.Run("deactivation cancels open payments", func(t *testing.T) {
		res, err := f.r.DeactivateMembership(f.ctx, owner, svc.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, res.Membership.Active)
		require.Len(t, res.Cancelled, 1)
		assert.Equal(t, payments[b.ID].ID, res.Cancelled[0].ID)

		stored := f.payment(t, payments[b.ID].ID)
		assert.Equal(t, models.StatusCancelled, stored.Status)
		assert.Equal(t, models.CancelMembershipDeactivated, stored.CancelReason)
	})

	t.Run("delete is refused while memberships are active", func(t *testing.T) {
		err := f.r.DeleteMember(f.ctx, owner, a.ID)
		requireKind(t, err, ledger.KindInvalidState)
	})

	t.Run("delete keeps members with payment history", func(t *testing.T) {
		err := f.r.DeleteMember(f.ctx, owner, b.ID)
		requireKind(t, err, ledger.KindInvalidState)
	})

	t.Run("delete removes a member without history", func(t *testing.T) {
		z := f.member(t, "Zoe")
		require.NoError(t, f.r.DeleteMember(f.ctx, owner, z.ID))
		err := f.r.DeleteMember(f.ctx, owner, z.ID)
		requireKind(t, err, ledger.KindNotFound)
	})
}

func TestCatalogValidation(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.r.CreateService(f.ctx, owner, &models.Service{Name: "X", MonthlyCost: dec("0"), BillingDay: 1, SplitType: models.SplitEqual})
	requireKind(t, err, ledger.KindInvalidAmount)

	_, _, err = f.r.CreateService(f.ctx, owner, &models.Service{Name: "X", MonthlyCost: dec("10"), BillingDay: 32, SplitType: models.SplitEqual})
	requireKind(t, err, ledger.KindInvalidInput)

	_, _, err = f.r.CreateService(f.ctx, owner, &models.Service{Name: "X", MonthlyCost: dec("10"), BillingDay: 1, SplitType: models.SplitEqual},
		NewMembership{MemberID: "missing"})
	requireKind(t, err, ledger.KindNotFound)
	services, _ := f.r.ListServices(f.ctx, owner)
	assert.Empty(t, services, "a failed create leaves nothing behind")

	_, err = f.r.CreateMember(f.ctx, owner, &models.Member{Name: "  "})
	requireKind(t, err, ledger.KindInvalidInput)
	_, err = f.r.CreateMember(f.ctx, owner, &models.Member{Name: "Ana", Email: "not-an-email"})
	requireKind(t, err, ledger.KindInvalidInput)
}

func TestNotes(t *testing.T) {
	f := newFixture(t)
	a, b := f.member(t, "Ana"), f.member(t, "Ben")
	_, payments := f.service(t, "Netflix", "300", a, b)
	id := payments[a.ID].ID

	_, err := f.r.AddNote(f.ctx, Author{Kind: models.AuthorOwner, ID: owner}, id, "reminded by phone")
	require.NoError(t, err)
	f.clock.Set(f.clock.Now().Add(time.Minute))
	_, err = f.r.AddNote(f.ctx, Author{Kind: models.AuthorMember, ID: a.ID}, id, "  sent on friday ")
	require.NoError(t, err)

	_, err = f.r.AddNote(f.ctx, Author{Kind: models.AuthorMember, ID: b.ID}, id, "not mine")
	requireKind(t, err, ledger.KindNotFound)
	_, err = f.r.AddNote(f.ctx, Author{Kind: models.AuthorOwner, ID: owner}, id, "   ")
	requireKind(t, err, ledger.KindInvalidInput)

	notes, err := f.r.ListNotes(f.ctx, Author{Kind: models.AuthorOwner, ID: owner}, id)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "sent on friday", notes[1].Body)
	assert.Equal(t, a.ID, notes[1].AuthorID)

	// notes never change the payment
	assert.Equal(t, models.StatusPending, f.payment(t, id).Status)
}

func TestViews(t *testing.T) {
	f := newFixture(t)
	a, b := f.member(t, "Ana"), f.member(t, "Ben")
	svc, payments := f.service(t, "Netflix", "300", a, b)

	_, err := f.r.RegisterPayment(f.ctx, owner, payments[a.ID].ID, dec("100"))
	require.NoError(t, err)
	_, err = f.r.RegisterPayment(f.ctx, owner, payments[b.ID].ID, dec("40"))
	require.NoError(t, err)

	dash, err := f.r.Dashboard(f.ctx, owner)
	require.NoError(t, err)
	assertDec(t, "200", dash.TotalReceivable)
	assertDec(t, "140", dash.TotalCollected)
	assertDec(t, "60", dash.TotalOutstanding)
	assert.Equal(t, 1, dash.OverdueCount)
	require.Len(t, dash.Debtors, 1)
	assert.Equal(t, b.ID, dash.Debtors[0].MemberID)
	assertDec(t, "60", dash.Debtors[0].AmountOwed)

	cards, err := f.r.MemberCards(f.ctx, owner)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "Ana", cards[0].Member.Name)
	assert.True(t, cards[0].TotalDebt.IsZero())
	assertDec(t, "60", cards[1].TotalDebt)

	reminders, err := f.r.Reminders(f.ctx, owner)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, NoticeReminder, reminders[0].Kind)
	assert.Equal(t, b.ID, reminders[0].Recipient.ID)

	cycle, views, err := f.r.CyclePayments(f.ctx, owner, svc.ID)
	require.NoError(t, err)
	assert.True(t, cycle.PeriodStart.Equal(march))
	require.Len(t, views, 2)
	assert.Equal(t, "Ana", views[0].MemberName)
	assert.Equal(t, models.StatusConfirmed, views[0].DisplayStatus)
	assert.Equal(t, models.StatusOverdue, views[1].DisplayStatus)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	a := f.member(t, "Ana")
	_, payments := f.service(t, "Netflix", "200", a)
	id := payments[a.ID].ID

	applied := operationsTotal.WithLabelValues(OpClaim, string(OutcomeApplied))
	invalid := operationsTotal.WithLabelValues(OpClaim, string(ledger.KindInvalidAmount))
	beforeApplied, beforeInvalid := testutil.ToFloat64(applied), testutil.ToFloat64(invalid)

	_, err := f.r.ClaimPayment(f.ctx, a.ID, id, dec("0"))
	require.Error(t, err)
	_, err = f.r.ClaimPayment(f.ctx, a.ID, id, dec("100"))
	require.NoError(t, err)

	assert.Equal(t, beforeApplied+1, testutil.ToFloat64(applied))
	assert.Equal(t, beforeInvalid+1, testutil.ToFloat64(invalid))
}
