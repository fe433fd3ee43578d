package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/calculator"
	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/money"
	"github.com/mmynk/subsplit/internal/reconcile"
	"github.com/mmynk/subsplit/pkg/api"
)

// parseAmount reads a required decimal string from a request field.
func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, invalidArgument(fmt.Errorf("%s is required", field))
	}
	d, err := money.Parse(s)
	if err != nil {
		return decimal.Zero, invalidArgument(fmt.Errorf("%s: %w", field, err))
	}
	return d, nil
}

// parseOptionalAmount returns nil for an empty string.
func parseOptionalAmount(field, s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := parseAmount(field, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func unixOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.Unix()
}

func nonZero(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		Id:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toAPIService(s *models.Service) *api.Service {
	return &api.Service{
		Id:          s.ID,
		Name:        s.Name,
		MonthlyCost: s.MonthlyCost.String(),
		BillingDay:  int32(s.BillingDay),
		SplitType:   string(s.SplitType),
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
	}
}

func toAPIMember(m *models.Member) *api.Member {
	return &api.Member{
		Id:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		UserId:    m.UserID,
		CreatedAt: m.CreatedAt,
	}
}

func toAPIMembership(ms *models.ServiceMembership) *api.Membership {
	out := &api.Membership{
		ServiceId: ms.ServiceID,
		MemberId:  ms.MemberID,
		Active:    ms.Active,
	}
	if ms.CustomAmount != nil {
		out.CustomAmount = ms.CustomAmount.String()
	}
	return out
}

func toAPICycle(c *models.BillingCycle) *api.BillingCycle {
	if c == nil {
		return nil
	}
	return &api.BillingCycle{
		Id:          c.ID,
		ServiceId:   c.ServiceID,
		PeriodStart: c.PeriodStart.Unix(),
		PeriodEnd:   c.PeriodEnd.Unix(),
		TotalAmount: c.TotalAmount.String(),
	}
}

func toAPIPayment(p *models.Payment) *api.Payment {
	if p == nil {
		return nil
	}
	return &api.Payment{
		Id:                   p.ID,
		CycleId:              p.CycleID,
		ServiceId:            p.ServiceID,
		MemberId:             p.MemberID,
		AmountDue:            p.AmountDue.String(),
		AmountPaid:           p.AmountPaid.String(),
		AccumulatedDebt:      p.AccumulatedDebt.String(),
		AmountOwed:           p.Owed().String(),
		Status:               string(p.Status),
		DueDate:              p.DueDate.Unix(),
		PaidAt:               unixOrZero(p.PaidAt),
		ConfirmedAt:          unixOrZero(p.ConfirmedAt),
		RequiresConfirmation: p.RequiresConfirmation,
		ShortfallCarried:     nonZero(p.ShortfallCarried),
		CancelReason:         string(p.CancelReason),
	}
}

func toAPIPayments(ps []*models.Payment) []*api.Payment {
	out := make([]*api.Payment, 0, len(ps))
	for _, p := range ps {
		out = append(out, toAPIPayment(p))
	}
	return out
}

func toAPIPaymentView(v reconcile.PaymentView) *api.Payment {
	out := toAPIPayment(v.Payment)
	out.DisplayStatus = string(v.DisplayStatus)
	out.ServiceName = v.ServiceName
	out.MemberName = v.MemberName
	return out
}

func toAPIResult(res *reconcile.Result) *api.PaymentResult {
	out := &api.PaymentResult{
		Payment:          toAPIPayment(res.Payment),
		From:             string(res.From),
		To:               string(res.To),
		Outcome:          string(res.Outcome),
		CreditGenerated:  res.Effects.CreditGenerated,
		CreditAmount:     nonZero(res.Effects.CreditAmount),
		ShortfallCarried: nonZero(res.Effects.ShortfallCarried),
		DebtAppliedTo:    res.Effects.DebtAppliedTo,
	}
	if res.ConfirmErr != nil {
		out.ConfirmError = res.ConfirmErr.Error()
	}
	return out
}

func toAPINote(n *models.PaymentNote) *api.Note {
	return &api.Note{
		Id:         n.ID,
		PaymentId:  n.PaymentID,
		AuthorKind: string(n.AuthorKind),
		AuthorId:   n.AuthorID,
		Body:       n.Body,
		CreatedAt:  n.CreatedAt,
	}
}

func toAPIDebtor(d calculator.Debtor) *api.Debtor {
	return &api.Debtor{
		MemberId:    d.MemberID,
		MemberName:  d.MemberName,
		ServiceId:   d.ServiceID,
		ServiceName: d.ServiceName,
		PaymentId:   d.PaymentID,
		Status:      string(d.Status),
		Overdue:     d.Overdue,
		AmountOwed:  d.AmountOwed.String(),
		DueDate:     d.DueDate.Unix(),
	}
}

func toAPICard(c calculator.MemberCard) *api.MemberCard {
	out := &api.MemberCard{
		Member:        toAPIMember(c.Member),
		Services:      make([]*api.ServiceLine, 0, len(c.Services)),
		TotalDebt:     c.TotalDebt.String(),
		MonthlyAmount: c.MonthlyAmount.String(),
	}
	for _, l := range c.Services {
		out.Services = append(out.Services, &api.ServiceLine{
			ServiceId:       l.ServiceID,
			ServiceName:     l.ServiceName,
			MonthlyCost:     l.MonthlyCost.String(),
			SplitType:       string(l.SplitType),
			DueAmount:       l.DueAmount.String(),
			LatestStatus:    string(l.LatestStatus),
			LatestPaymentId: l.LatestPaymentID,
		})
	}
	return out
}
