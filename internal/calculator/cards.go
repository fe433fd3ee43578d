package calculator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/ledger"
	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/money"
)

// MemberCard is the per-person rollup.
type MemberCard struct {
	Member *models.Member

	Services []ServiceLine

	// TotalDebt is Σ(AmountDue − AmountPaid + AccumulatedDebt) over the
	// member's open payments.
	TotalDebt decimal.Decimal

	// MonthlyAmount is Σ DueAmount over Services.
	MonthlyAmount decimal.Decimal
}

// ServiceLine is one service on a member card.
type ServiceLine struct {
	ServiceID   string
	ServiceName string
	MonthlyCost decimal.Decimal
	SplitType   models.SplitType

	// DueAmount is the member's per-cycle share.
	DueAmount decimal.Decimal

	// LatestStatus is the display status of the member's most recent
	// payment on the service, empty when none exists yet.
	LatestStatus    models.PaymentStatus
	LatestPaymentID string
}

// MemberCards builds one card per member, sorted by name.
// Only active memberships on active services contribute.
func MemberCards(s *Snapshot, now time.Time) []MemberCard {
	idx := buildIndex(s)

	latest := make(map[membershipKey]*models.Payment)
	debt := make(map[string]decimal.Decimal)
	for _, p := range idx.workingSet(s.Payments) {
		key := membershipKey{p.ServiceID, p.MemberID}
		if cur, ok := latest[key]; !ok || idx.periodOf(p).After(idx.periodOf(cur)) {
			latest[key] = p
		}
		if ledger.DeriveDisplayStatus(p, now).IsOpen() {
			debt[p.MemberID] = debt[p.MemberID].Add(money.NonNegative(p.Remaining()))
		}
	}

	byMember := make(map[string][]*models.ServiceMembership)
	for _, ms := range s.Memberships {
		if ms.Active {
			byMember[ms.MemberID] = append(byMember[ms.MemberID], ms)
		}
	}

	cards := make([]MemberCard, 0, len(s.Members))
	for _, m := range s.Members {
		card := MemberCard{
			Member:        m,
			TotalDebt:     debt[m.ID],
			MonthlyAmount: decimal.Zero,
		}
		for _, ms := range byMember[m.ID] {
			svc, ok := idx.services[ms.ServiceID]
			if !ok || !svc.IsActive() {
				continue
			}
			line := ServiceLine{
				ServiceID:   svc.ID,
				ServiceName: svc.Name,
				MonthlyCost: svc.MonthlyCost,
				SplitType:   svc.SplitType,
				DueAmount:   MemberShare(svc, ms, idx.activeCount[svc.ID]),
			}
			if p, ok := latest[membershipKey{svc.ID, m.ID}]; ok {
				line.LatestStatus = ledger.DeriveDisplayStatus(p, now)
				line.LatestPaymentID = p.ID
			}
			card.MonthlyAmount = card.MonthlyAmount.Add(line.DueAmount)
			card.Services = append(card.Services, line)
		}
		sort.Slice(card.Services, func(i, j int) bool {
			return card.Services[i].ServiceName < card.Services[j].ServiceName
		})
		cards = append(cards, card)
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Member.Name < cards[j].Member.Name
	})
	return cards
}
