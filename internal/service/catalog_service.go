package service

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/notify"
	"github.com/mmynk/subsplit/internal/reconcile"
	"github.com/mmynk/subsplit/pkg/api"
	"github.com/mmynk/subsplit/pkg/api/apiconnect"
)

var _ apiconnect.CatalogServiceHandler = (*CatalogService)(nil)

// CatalogService implements the Connect CatalogService.
type CatalogService struct {
	base
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(r *reconcile.Reconciler, d notify.Dispatcher, logger *slog.Logger) *CatalogService {
	return &CatalogService{base{reconciler: r, dispatcher: d, logger: logger}}
}

// CreateService creates a service with its initial members and opens its
// current billing cycle.
func (s *CatalogService) CreateService(ctx context.Context, req *connect.Request[api.CreateServiceRequest]) (*connect.Response[api.CreateServiceResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateService request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	cost, err := parseAmount("monthly_cost", req.Msg.MonthlyCost)
	if err != nil {
		return nil, err
	}
	splitType := models.SplitType(req.Msg.SplitType)
	if splitType == "" {
		splitType = models.SplitEqual
	}
	members := make([]reconcile.NewMembership, 0, len(req.Msg.Members))
	for _, m := range req.Msg.Members {
		custom, err := parseOptionalAmount("custom_amount", m.CustomAmount)
		if err != nil {
			return nil, err
		}
		members = append(members, reconcile.NewMembership{MemberID: m.MemberId, CustomAmount: custom})
	}

	svc, cycle, err := s.reconciler.CreateService(ctx, ownerID, &models.Service{
		Name:        req.Msg.Name,
		MonthlyCost: cost,
		BillingDay:  int(req.Msg.BillingDay),
		SplitType:   splitType,
	}, members...)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.CatalogServiceCreateServiceProcedure, err)
	}
	s.dispatch(ctx, cycle.Notices...)

	s.logger.Info("Service created", "service_id", svc.ID, "payments", len(cycle.Payments))
	return connect.NewResponse(&api.CreateServiceResponse{
		Service:  toAPIService(svc),
		Cycle:    toAPICycle(cycle.Cycle),
		Payments: toAPIPayments(cycle.Payments),
	}), nil
}

// UpdateService applies the fields set in the request.
func (s *CatalogService) UpdateService(ctx context.Context, req *connect.Request[api.UpdateServiceRequest]) (*connect.Response[api.UpdateServiceResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("UpdateService request received", "service_id", req.Msg.ServiceId)

	var upd reconcile.ServiceUpdate
	upd.Name = req.Msg.Name
	if req.Msg.MonthlyCost != nil {
		cost, err := parseAmount("monthly_cost", *req.Msg.MonthlyCost)
		if err != nil {
			return nil, err
		}
		upd.MonthlyCost = &cost
	}
	if req.Msg.BillingDay != nil {
		day := int(*req.Msg.BillingDay)
		upd.BillingDay = &day
	}
	if req.Msg.SplitType != nil {
		st := models.SplitType(*req.Msg.SplitType)
		upd.SplitType = &st
	}
	if req.Msg.Status != nil {
		status := models.ServiceStatus(*req.Msg.Status)
		upd.Status = &status
	}

	svc, err := s.reconciler.UpdateService(ctx, ownerID, req.Msg.ServiceId, upd)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.CatalogServiceUpdateServiceProcedure, err)
	}
	return connect.NewResponse(&api.UpdateServiceResponse{Service: toAPIService(svc)}), nil
}

// ListServices returns the caller's services.
func (s *CatalogService) ListServices(ctx context.Context, req *connect.Request[api.ListServicesRequest]) (*connect.Response[api.ListServicesResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	services, err := s.reconciler.ListServices(ctx, ownerID)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.CatalogServiceListServicesProcedure, err)
	}

	out := make([]*api.Service, 0, len(services))
	for _, svc := range services {
		out = append(out, toAPIService(svc))
	}
	return connect.NewResponse(&api.ListServicesResponse{Services: out}), nil
}

// CreateMember adds a member to the caller's roster.
func (s *CatalogService) CreateMember(ctx context.Context, req *connect.Request[api.CreateMemberRequest]) (*connect.Response[api.CreateMemberResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateMember request received", "name", req.Msg.Name)

	m, err := s.reconciler.CreateMember(ctx, ownerID, &models.Member{
		Name:   req.Msg.Name,
		Email:  req.Msg.Email,
		Phone:  req.Msg.Phone,
		UserID: req.Msg.UserId,
	})
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.CatalogServiceCreateMemberProcedure, err)
	}

	s.logger.Info("Member created", "member_id", m.ID)
	return connect.NewResponse(&api.CreateMemberResponse{Member: toAPIMember(m)}), nil
}

// UpdateMember replaces a member's contact details.
func (s *CatalogService) UpdateMember(ctx context.Context, req *connect.Request[api.UpdateMemberRequest]) (*connect.Response[api.UpdateMemberResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.reconciler.UpdateMember(ctx, ownerID, &models.Member{
		ID:     req.Msg.MemberId,
		Name:   req.Msg.Name,
		Email:  req.Msg.Email,
		Phone:  req.Msg.Phone,
		UserID: req.Msg.UserId,
	})
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.CatalogServiceUpdateMemberProcedure, err)
	}
	return connect.NewResponse(&api.UpdateMemberResponse{Member: toAPIMember(m)}), nil
}

// DeleteMember removes a member with no active memberships.
func (s *CatalogService) DeleteMember(ctx context.Context, req *connect.Request[api.DeleteMemberRequest]) (*connect.Response[api.DeleteMemberResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("DeleteMember request received", "member_id", req.Msg.MemberId)

	if err := s.reconciler.DeleteMember(ctx, ownerID, req.Msg.MemberId); err != nil {
		return nil, toConnectError(s.logger, apiconnect.CatalogServiceDeleteMemberProcedure, err)
	}
	return connect.NewResponse(&api.DeleteMemberResponse{}), nil
}

// ListMembers returns the caller's members.
func (s *CatalogService) ListMembers(ctx context.Context, req *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	members, err := s.reconciler.ListMembers(ctx, ownerID)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.CatalogServiceListMembersProcedure, err)
	}

	out := make([]*api.Member, 0, len(members))
	for _, m := range members {
		out = append(out, toAPIMember(m))
	}
	return connect.NewResponse(&api.ListMembersResponse{Members: out}), nil
}

// SetMembership adds or reactivates a member on a service.
func (s *CatalogService) SetMembership(ctx context.Context, req *connect.Request[api.SetMembershipRequest]) (*connect.Response[api.SetMembershipResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("SetMembership request received",
		"service_id", req.Msg.ServiceId,
		"member_id", req.Msg.MemberId,
	)

	custom, err := parseOptionalAmount("custom_amount", req.Msg.CustomAmount)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.SetMembership(ctx, ownerID, req.Msg.ServiceId, req.Msg.MemberId, custom)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.CatalogServiceSetMembershipProcedure, err)
	}
	s.dispatchOne(ctx, res.Notice)

	return connect.NewResponse(&api.SetMembershipResponse{
		Membership: toAPIMembership(res.Membership),
		Payment:    toAPIPayment(res.Payment),
	}), nil
}

// DeactivateMembership removes a member from a service.
func (s *CatalogService) DeactivateMembership(ctx context.Context, req *connect.Request[api.DeactivateMembershipRequest]) (*connect.Response[api.DeactivateMembershipResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("DeactivateMembership request received",
		"service_id", req.Msg.ServiceId,
		"member_id", req.Msg.MemberId,
	)

	res, err := s.reconciler.DeactivateMembership(ctx, ownerID, req.Msg.ServiceId, req.Msg.MemberId)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.CatalogServiceDeactivateMembershipProcedure, err)
	}

	return connect.NewResponse(&api.DeactivateMembershipResponse{
		Membership:        toAPIMembership(res.Membership),
		CancelledPayments: toAPIPayments(res.Cancelled),
	}), nil
}

// ListMemberships returns every membership of a service.
func (s *CatalogService) ListMemberships(ctx context.Context, req *connect.Request[api.ListMembershipsRequest]) (*connect.Response[api.ListMembershipsResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	memberships, err := s.reconciler.ListMemberships(ctx, ownerID, req.Msg.ServiceId)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.CatalogServiceListMembershipsProcedure, err)
	}

	out := make([]*api.Membership, 0, len(memberships))
	for _, ms := range memberships {
		out = append(out, toAPIMembership(ms))
	}
	return connect.NewResponse(&api.ListMembershipsResponse{Memberships: out}), nil
}

// GenerateCycle opens a billing period of a service.
func (s *CatalogService) GenerateCycle(ctx context.Context, req *connect.Request[api.GenerateCycleRequest]) (*connect.Response[api.GenerateCycleResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("GenerateCycle request received",
		"service_id", req.Msg.ServiceId,
		"period_start", req.Msg.PeriodStart,
	)

	var at time.Time
	if req.Msg.PeriodStart != 0 {
		at = time.Unix(req.Msg.PeriodStart, 0).UTC()
	}

	res, err := s.reconciler.GenerateCycle(ctx, ownerID, req.Msg.ServiceId, at)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.CatalogServiceGenerateCycleProcedure, err)
	}
	s.dispatch(ctx, res.Notices...)

	s.logger.Info("Cycle generated",
		"cycle_id", res.Cycle.ID,
		"existing", res.Existing,
		"payments", len(res.Payments),
		"rolled_over", len(res.RolledOver),
	)
	return connect.NewResponse(&api.GenerateCycleResponse{
		Cycle:          toAPICycle(res.Cycle),
		Payments:       toAPIPayments(res.Payments),
		RolledOver:     toAPIPayments(res.RolledOver),
		CreditsApplied: res.CreditsApplied.StringFixed(2),
		Existing:       res.Existing,
	}), nil
}

