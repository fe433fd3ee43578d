package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/money"
)

// MemberShare computes what one member owes per cycle for a service.
//
// For SplitCustom the membership's custom amount is used. Otherwise, and when
// no custom amount is set, the monthly cost is split equally between the
// owner and every active member: monthly_cost / (activeMembers + 1).
func MemberShare(service *models.Service, membership *models.ServiceMembership, activeMembers int) decimal.Decimal {
	if service.SplitType == models.SplitCustom && membership != nil && membership.CustomAmount != nil {
		return money.Round(*membership.CustomAmount)
	}
	return money.EqualShare(service.MonthlyCost, activeMembers+1)
}

// ActiveMemberCounts returns the number of active memberships per service ID.
func ActiveMemberCounts(memberships []*models.ServiceMembership) map[string]int {
	counts := make(map[string]int)
	for _, ms := range memberships {
		if ms.Active {
			counts[ms.ServiceID]++
		}
	}
	return counts
}
