package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/subsplit/pkg/api"
)

// CatalogServiceName is the fully-qualified name of the CatalogService.
const CatalogServiceName = "subsplit.v1.CatalogService"

// Procedure paths of the CatalogService.
const (
	CatalogServiceCreateServiceProcedure        = "/subsplit.v1.CatalogService/CreateService"
	CatalogServiceUpdateServiceProcedure        = "/subsplit.v1.CatalogService/UpdateService"
	CatalogServiceListServicesProcedure         = "/subsplit.v1.CatalogService/ListServices"
	CatalogServiceCreateMemberProcedure         = "/subsplit.v1.CatalogService/CreateMember"
	CatalogServiceUpdateMemberProcedure         = "/subsplit.v1.CatalogService/UpdateMember"
	CatalogServiceDeleteMemberProcedure         = "/subsplit.v1.CatalogService/DeleteMember"
	CatalogServiceListMembersProcedure          = "/subsplit.v1.CatalogService/ListMembers"
	CatalogServiceSetMembershipProcedure        = "/subsplit.v1.CatalogService/SetMembership"
	CatalogServiceDeactivateMembershipProcedure = "/subsplit.v1.CatalogService/DeactivateMembership"
	CatalogServiceListMembershipsProcedure      = "/subsplit.v1.CatalogService/ListMemberships"
	CatalogServiceGenerateCycleProcedure        = "/subsplit.v1.CatalogService/GenerateCycle"
)

// CatalogServiceClient is a client for the CatalogService.
// Owner-side management of services, members, memberships and billing cycles.
type CatalogServiceClient interface {
	// CreateService stores a service with its members and opens the current cycle.
	CreateService(context.Context, *connect.Request[api.CreateServiceRequest]) (*connect.Response[api.CreateServiceResponse], error)
	UpdateService(context.Context, *connect.Request[api.UpdateServiceRequest]) (*connect.Response[api.UpdateServiceResponse], error)
	ListServices(context.Context, *connect.Request[api.ListServicesRequest]) (*connect.Response[api.ListServicesResponse], error)
	CreateMember(context.Context, *connect.Request[api.CreateMemberRequest]) (*connect.Response[api.CreateMemberResponse], error)
	UpdateMember(context.Context, *connect.Request[api.UpdateMemberRequest]) (*connect.Response[api.UpdateMemberResponse], error)
	// DeleteMember fails while the member has active memberships or payments.
	DeleteMember(context.Context, *connect.Request[api.DeleteMemberRequest]) (*connect.Response[api.DeleteMemberResponse], error)
	ListMembers(context.Context, *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error)
	// SetMembership adds or reactivates a member on a service.
	SetMembership(context.Context, *connect.Request[api.SetMembershipRequest]) (*connect.Response[api.SetMembershipResponse], error)
	// DeactivateMembership removes a member from a service and cancels their open payments.
	DeactivateMembership(context.Context, *connect.Request[api.DeactivateMembershipRequest]) (*connect.Response[api.DeactivateMembershipResponse], error)
	ListMemberships(context.Context, *connect.Request[api.ListMembershipsRequest]) (*connect.Response[api.ListMembershipsResponse], error)
	// GenerateCycle opens a billing period and creates its payments.
	GenerateCycle(context.Context, *connect.Request[api.GenerateCycleRequest]) (*connect.Response[api.GenerateCycleResponse], error)
}

// NewCatalogServiceClient constructs a client for the CatalogService. baseURL is the
// server root, for example http://localhost:8080.
func NewCatalogServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) CatalogServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opt := clientOptions(opts)
	return &catalogServiceClient{
		createService:        connect.NewClient[api.CreateServiceRequest, api.CreateServiceResponse](httpClient, baseURL+CatalogServiceCreateServiceProcedure, opt),
		updateService:        connect.NewClient[api.UpdateServiceRequest, api.UpdateServiceResponse](httpClient, baseURL+CatalogServiceUpdateServiceProcedure, opt),
		listServices:         connect.NewClient[api.ListServicesRequest, api.ListServicesResponse](httpClient, baseURL+CatalogServiceListServicesProcedure, opt),
		createMember:         connect.NewClient[api.CreateMemberRequest, api.CreateMemberResponse](httpClient, baseURL+CatalogServiceCreateMemberProcedure, opt),
		updateMember:         connect.NewClient[api.UpdateMemberRequest, api.UpdateMemberResponse](httpClient, baseURL+CatalogServiceUpdateMemberProcedure, opt),
		deleteMember:         connect.NewClient[api.DeleteMemberRequest, api.DeleteMemberResponse](httpClient, baseURL+CatalogServiceDeleteMemberProcedure, opt),
		listMembers:          connect.NewClient[api.ListMembersRequest, api.ListMembersResponse](httpClient, baseURL+CatalogServiceListMembersProcedure, opt),
		setMembership:        connect.NewClient[api.SetMembershipRequest, api.SetMembershipResponse](httpClient, baseURL+CatalogServiceSetMembershipProcedure, opt),
		deactivateMembership: connect.NewClient[api.DeactivateMembershipRequest, api.DeactivateMembershipResponse](httpClient, baseURL+CatalogServiceDeactivateMembershipProcedure, opt),
		listMemberships:      connect.NewClient[api.ListMembershipsRequest, api.ListMembershipsResponse](httpClient, baseURL+CatalogServiceListMembershipsProcedure, opt),
		generateCycle:        connect.NewClient[api.GenerateCycleRequest, api.GenerateCycleResponse](httpClient, baseURL+CatalogServiceGenerateCycleProcedure, opt),
	}
}

type catalogServiceClient struct {
	createService        *connect.Client[api.CreateServiceRequest, api.CreateServiceResponse]
	updateService        *connect.Client[api.UpdateServiceRequest, api.UpdateServiceResponse]
	listServices         *connect.Client[api.ListServicesRequest, api.ListServicesResponse]
	createMember         *connect.Client[api.CreateMemberRequest, api.CreateMemberResponse]
	updateMember         *connect.Client[api.UpdateMemberRequest, api.UpdateMemberResponse]
	deleteMember         *connect.Client[api.DeleteMemberRequest, api.DeleteMemberResponse]
	listMembers          *connect.Client[api.ListMembersRequest, api.ListMembersResponse]
	setMembership        *connect.Client[api.SetMembershipRequest, api.SetMembershipResponse]
	deactivateMembership *connect.Client[api.DeactivateMembershipRequest, api.DeactivateMembershipResponse]
	listMemberships      *connect.Client[api.ListMembershipsRequest, api.ListMembershipsResponse]
	generateCycle        *connect.Client[api.GenerateCycleRequest, api.GenerateCycleResponse]
}

func (c *catalogServiceClient) CreateService(ctx context.Context, req *connect.Request[api.CreateServiceRequest]) (*connect.Response[api.CreateServiceResponse], error) {
	return c.createService.CallUnary(ctx, req)
}

func (c *catalogServiceClient) UpdateService(ctx context.Context, req *connect.Request[api.UpdateServiceRequest]) (*connect.Response[api.UpdateServiceResponse], error) {
	return c.updateService.CallUnary(ctx, req)
}

func (c *catalogServiceClient) ListServices(ctx context.Context, req *connect.Request[api.ListServicesRequest]) (*connect.Response[api.ListServicesResponse], error) {
	return c.listServices.CallUnary(ctx, req)
}

func (c *catalogServiceClient) CreateMember(ctx context.Context, req *connect.Request[api.CreateMemberRequest]) (*connect.Response[api.CreateMemberResponse], error) {
	return c.createMember.CallUnary(ctx, req)
}

func (c *catalogServiceClient) UpdateMember(ctx context.Context, req *connect.Request[api.UpdateMemberRequest]) (*connect.Response[api.UpdateMemberResponse], error) {
	return c.updateMember.CallUnary(ctx, req)
}

func (c *catalogServiceClient) DeleteMember(ctx context.Context, req *connect.Request[api.DeleteMemberRequest]) (*connect.Response[api.DeleteMemberResponse], error) {
	return c.deleteMember.CallUnary(ctx, req)
}

func (c *catalogServiceClient) ListMembers(ctx context.Context, req *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error) {
	return c.listMembers.CallUnary(ctx, req)
}

func (c *catalogServiceClient) SetMembership(ctx context.Context, req *connect.Request[api.SetMembershipRequest]) (*connect.Response[api.SetMembershipResponse], error) {
	return c.setMembership.CallUnary(ctx, req)
}

func (c *catalogServiceClient) DeactivateMembership(ctx context.Context, req *connect.Request[api.DeactivateMembershipRequest]) (*connect.Response[api.DeactivateMembershipResponse], error) {
	return c.deactivateMembership.CallUnary(ctx, req)
}

func (c *catalogServiceClient) ListMemberships(ctx context.Context, req *connect.Request[api.ListMembershipsRequest]) (*connect.Response[api.ListMembershipsResponse], error) {
	return c.listMemberships.CallUnary(ctx, req)
}

func (c *catalogServiceClient) GenerateCycle(ctx context.Context, req *connect.Request[api.GenerateCycleRequest]) (*connect.Response[api.GenerateCycleResponse], error) {
	return c.generateCycle.CallUnary(ctx, req)
}

// CatalogServiceHandler is implemented by the server side of the CatalogService.
type CatalogServiceHandler interface {
	CreateService(context.Context, *connect.Request[api.CreateServiceRequest]) (*connect.Response[api.CreateServiceResponse], error)
	UpdateService(context.Context, *connect.Request[api.UpdateServiceRequest]) (*connect.Response[api.UpdateServiceResponse], error)
	ListServices(context.Context, *connect.Request[api.ListServicesRequest]) (*connect.Response[api.ListServicesResponse], error)
	CreateMember(context.Context, *connect.Request[api.CreateMemberRequest]) (*connect.Response[api.CreateMemberResponse], error)
	UpdateMember(context.Context, *connect.Request[api.UpdateMemberRequest]) (*connect.Response[api.UpdateMemberResponse], error)
	DeleteMember(context.Context, *connect.Request[api.DeleteMemberRequest]) (*connect.Response[api.DeleteMemberResponse], error)
	ListMembers(context.Context, *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error)
	SetMembership(context.Context, *connect.Request[api.SetMembershipRequest]) (*connect.Response[api.SetMembershipResponse], error)
	DeactivateMembership(context.Context, *connect.Request[api.DeactivateMembershipRequest]) (*connect.Response[api.DeactivateMembershipResponse], error)
	ListMemberships(context.Context, *connect.Request[api.ListMembershipsRequest]) (*connect.Response[api.ListMembershipsResponse], error)
	GenerateCycle(context.Context, *connect.Request[api.GenerateCycleRequest]) (*connect.Response[api.GenerateCycleResponse], error)
}

// NewCatalogServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewCatalogServiceHandler(svc CatalogServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opt := handlerOptions(opts)
	createServiceHandler := connect.NewUnaryHandler(CatalogServiceCreateServiceProcedure, svc.CreateService, opt)
	updateServiceHandler := connect.NewUnaryHandler(CatalogServiceUpdateServiceProcedure, svc.UpdateService, opt)
	listServicesHandler := connect.NewUnaryHandler(CatalogServiceListServicesProcedure, svc.ListServices, opt)
	createMemberHandler := connect.NewUnaryHandler(CatalogServiceCreateMemberProcedure, svc.CreateMember, opt)
	updateMemberHandler := connect.NewUnaryHandler(CatalogServiceUpdateMemberProcedure, svc.UpdateMember, opt)
	deleteMemberHandler := connect.NewUnaryHandler(CatalogServiceDeleteMemberProcedure, svc.DeleteMember, opt)
	listMembersHandler := connect.NewUnaryHandler(CatalogServiceListMembersProcedure, svc.ListMembers, opt)
	setMembershipHandler := connect.NewUnaryHandler(CatalogServiceSetMembershipProcedure, svc.SetMembership, opt)
	deactivateMembershipHandler := connect.NewUnaryHandler(CatalogServiceDeactivateMembershipProcedure, svc.DeactivateMembership, opt)
	listMembershipsHandler := connect.NewUnaryHandler(CatalogServiceListMembershipsProcedure, svc.ListMemberships, opt)
	generateCycleHandler := connect.NewUnaryHandler(CatalogServiceGenerateCycleProcedure, svc.GenerateCycle, opt)
	return "/subsplit.v1.CatalogService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CatalogServiceCreateServiceProcedure:
			createServiceHandler.ServeHTTP(w, r)
		case CatalogServiceUpdateServiceProcedure:
			updateServiceHandler.ServeHTTP(w, r)
		case CatalogServiceListServicesProcedure:
			listServicesHandler.ServeHTTP(w, r)
		case CatalogServiceCreateMemberProcedure:
			createMemberHandler.ServeHTTP(w, r)
		case CatalogServiceUpdateMemberProcedure:
			updateMemberHandler.ServeHTTP(w, r)
		case CatalogServiceDeleteMemberProcedure:
			deleteMemberHandler.ServeHTTP(w, r)
		case CatalogServiceListMembersProcedure:
			listMembersHandler.ServeHTTP(w, r)
		case CatalogServiceSetMembershipProcedure:
			setMembershipHandler.ServeHTTP(w, r)
		case CatalogServiceDeactivateMembershipProcedure:
			deactivateMembershipHandler.ServeHTTP(w, r)
		case CatalogServiceListMembershipsProcedure:
			listMembershipsHandler.ServeHTTP(w, r)
		case CatalogServiceGenerateCycleProcedure:
			generateCycleHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedCatalogServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedCatalogServiceHandler struct{}

func (UnimplementedCatalogServiceHandler) CreateService(context.Context, *connect.Request[api.CreateServiceRequest]) (*connect.Response[api.CreateServiceResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.CatalogService.CreateService is not implemented"))
}

func (UnimplementedCatalogServiceHandler) UpdateService(context.Context, *connect.Request[api.UpdateServiceRequest]) (*connect.Response[api.UpdateServiceResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.CatalogService.UpdateService is not implemented"))
}

func (UnimplementedCatalogServiceHandler) ListServices(context.Context, *connect.Request[api.ListServicesRequest]) (*connect.Response[api.ListServicesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.CatalogService.ListServices is not implemented"))
}

func (UnimplementedCatalogServiceHandler) CreateMember(context.Context, *connect.Request[api.CreateMemberRequest]) (*connect.Response[api.CreateMemberResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.CatalogService.CreateMember is not implemented"))
}

func (UnimplementedCatalogServiceHandler) UpdateMember(context.Context, *connect.Request[api.UpdateMemberRequest]) (*connect.Response[api.UpdateMemberResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.CatalogService.UpdateMember is not implemented"))
}

func (UnimplementedCatalogServiceHandler) DeleteMember(context.Context, *connect.Request[api.DeleteMemberRequest]) (*connect.Response[api.DeleteMemberResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.CatalogService.DeleteMember is not implemented"))
}

func (UnimplementedCatalogServiceHandler) ListMembers(context.Context, *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.CatalogService.ListMembers is not implemented"))
}

func (UnimplementedCatalogServiceHandler) SetMembership(context.Context, *connect.Request[api.SetMembershipRequest]) (*connect.Response[api.SetMembershipResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.CatalogService.SetMembership is not implemented"))
}

func (UnimplementedCatalogServiceHandler) DeactivateMembership(context.Context, *connect.Request[api.DeactivateMembershipRequest]) (*connect.Response[api.DeactivateMembershipResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.CatalogService.DeactivateMembership is not implemented"))
}

func (UnimplementedCatalogServiceHandler) ListMemberships(context.Context, *connect.Request[api.ListMembershipsRequest]) (*connect.Response[api.ListMembershipsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.CatalogService.ListMemberships is not implemented"))
}

func (UnimplementedCatalogServiceHandler) GenerateCycle(context.Context, *connect.Request[api.GenerateCycleRequest]) (*connect.Response[api.GenerateCycleResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.CatalogService.GenerateCycle is not implemented"))
}
