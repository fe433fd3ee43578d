package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/money"
)

// Settlement is the debt/credit outcome of confirming a payment.
type Settlement struct {
	// Owed is AmountDue + AccumulatedDebt at confirmation.
	Owed decimal.Decimal

	// Paid is what the member paid, before any overage was moved to credit.
	Paid decimal.Decimal

	// Shortfall is carried into the next cycle as AccumulatedDebt.
	Shortfall decimal.Decimal

	// Overage becomes a Credit.
	Overage decimal.Decimal
}

// CreditGenerated reports whether confirmation produces a Credit.
func (s Settlement) CreditGenerated() bool {
	return s.Overage.IsPositive()
}

// HasShortfall reports whether debt is carried forward.
func (s Settlement) HasShortfall() bool {
	return s.Shortfall.IsPositive()
}

// Settle computes the settlement for a payment about to be confirmed.
// Differences smaller than money.Epsilon count as exact payment.
func Settle(p *models.Payment) Settlement {
	owed := p.Owed()
	s := Settlement{
		Owed:      owed,
		Paid:      p.AmountPaid,
		Shortfall: decimal.Zero,
		Overage:   decimal.Zero,
	}
	switch {
	case money.Exceeds(owed, p.AmountPaid):
		s.Shortfall = money.Round(owed.Sub(p.AmountPaid))
	case money.Exceeds(p.AmountPaid, owed):
		s.Overage = money.Round(p.AmountPaid.Sub(owed))
	}
	return s
}

// applySettlement writes the settlement onto a payment being confirmed.
// An overage is removed from AmountPaid so the confirmed invariant holds.
func applySettlement(p *models.Payment, s Settlement) {
	p.ShortfallCarried = s.Shortfall
	if s.CreditGenerated() {
		p.AmountPaid = s.Owed
	}
}

// NextCycleDebt is what an earlier payment adds to the AccumulatedDebt of a
// member's next payment on the same service. Confirmed payments carry their
// recorded shortfall unless it was already carried; unsettled ones carry
// their whole remaining balance. Claims awaiting confirmation carry nothing
// until confirmed.
func NextCycleDebt(prev *models.Payment) decimal.Decimal {
	if prev == nil {
		return decimal.Zero
	}
	switch prev.Status {
	case models.StatusConfirmed:
		if prev.DebtCarried {
			return decimal.Zero
		}
		return money.NonNegative(prev.ShortfallCarried)
	case models.StatusPending, models.StatusPartial, models.StatusOverdue:
		return money.NonNegative(prev.Remaining())
	default:
		return decimal.Zero
	}
}

// ApplyCredits reduces amountDue by the available credits in order and
// returns the new amount due together with the updated credits. Credits that
// reach zero are marked consumed. The input slice is not modified.
func ApplyCredits(amountDue decimal.Decimal, credits []*models.Credit) (decimal.Decimal, []*models.Credit) {
	due := amountDue
	var touched []*models.Credit
	for _, c := range credits {
		if !due.IsPositive() {
			break
		}
		if c.Status != models.CreditAvailable || !c.Remaining.IsPositive() {
			continue
		}
		use := decimal.Min(c.Remaining, due)
		updated := *c
		updated.Remaining = c.Remaining.Sub(use)
		if !updated.Remaining.IsPositive() {
			updated.Remaining = decimal.Zero
			updated.Status = models.CreditConsumed
		}
		due = due.Sub(use)
		touched = append(touched, &updated)
	}
	return due, touched
}
