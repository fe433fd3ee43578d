package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/subsplit/internal/notify"
	"github.com/mmynk/subsplit/internal/reconcile"
	"github.com/mmynk/subsplit/pkg/api"
	"github.com/mmynk/subsplit/pkg/api/apiconnect"
)

var _ apiconnect.DashboardServiceHandler = (*DashboardService)(nil)

// DashboardService implements the Connect DashboardService.
type DashboardService struct {
	base
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(r *reconcile.Reconciler, d notify.Dispatcher, logger *slog.Logger) *DashboardService {
	return &DashboardService{base{reconciler: r, dispatcher: d, logger: logger}}
}

// GetDashboard returns the caller's receivable totals and top debtors.
func (s *DashboardService) GetDashboard(ctx context.Context, req *connect.Request[api.GetDashboardRequest]) (*connect.Response[api.GetDashboardResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	dash, err := s.reconciler.Dashboard(ctx, ownerID)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.DashboardServiceGetDashboardProcedure, err)
	}

	debtors := make([]*api.Debtor, 0, len(dash.Debtors))
	for _, d := range dash.Debtors {
		debtors = append(debtors, toAPIDebtor(d))
	}
	return connect.NewResponse(&api.GetDashboardResponse{
		TotalReceivable:      dash.TotalReceivable.StringFixed(2),
		TotalCollected:       dash.TotalCollected.StringFixed(2),
		TotalAccumulatedDebt: dash.TotalAccumulatedDebt.StringFixed(2),
		TotalOutstanding:     dash.TotalOutstanding.StringFixed(2),
		OverdueCount:         int32(dash.OverdueCount),
		PaymentCount:         int32(dash.PaymentCount),
		ActiveServiceCount:   int32(dash.ActiveServiceCount),
		Debtors:              debtors,
	}), nil
}

// ListMemberCards returns one card per member of the caller.
func (s *DashboardService) ListMemberCards(ctx context.Context, req *connect.Request[api.ListMemberCardsRequest]) (*connect.Response[api.ListMemberCardsResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	cards, err := s.reconciler.MemberCards(ctx, ownerID)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.DashboardServiceListMemberCardsProcedure, err)
	}

	out := make([]*api.MemberCard, 0, len(cards))
	for _, c := range cards {
		out = append(out, toAPICard(c))
	}
	return connect.NewResponse(&api.ListMemberCardsResponse{Cards: out}), nil
}

// SendReminders dispatches a reminder for every open payment in the caller's
// current cycles.
func (s *DashboardService) SendReminders(ctx context.Context, req *connect.Request[api.SendRemindersRequest]) (*connect.Response[api.SendRemindersResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	notices, err := s.reconciler.Reminders(ctx, ownerID)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.DashboardServiceSendRemindersProcedure, err)
	}
	if err := s.dispatcher.Dispatch(ctx, notices...); err != nil {
		s.logger.Error("SendReminders failed", "count", len(notices), "error", err)
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	debtors := make([]*api.Debtor, 0, len(notices))
	for _, n := range notices {
		debtors = append(debtors, &api.Debtor{
			MemberId:    n.MemberID,
			MemberName:  n.MemberName,
			ServiceId:   n.ServiceID,
			ServiceName: n.ServiceName,
			PaymentId:   n.PaymentID,
			AmountOwed:  n.Remaining.String(),
			DueDate:     n.DueDate.Unix(),
		})
	}

	s.logger.Info("Reminders sent", "owner_id", ownerID, "count", len(notices))
	return connect.NewResponse(&api.SendRemindersResponse{
		Sent:    int32(len(notices)),
		Debtors: debtors,
	}), nil
}
