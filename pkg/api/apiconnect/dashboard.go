package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/subsplit/pkg/api"
)

// DashboardServiceName is the fully-qualified name of the DashboardService.
const DashboardServiceName = "subsplit.v1.DashboardService"

// Procedure paths of the DashboardService.
const (
	DashboardServiceGetDashboardProcedure    = "/subsplit.v1.DashboardService/GetDashboard"
	DashboardServiceListMemberCardsProcedure = "/subsplit.v1.DashboardService/ListMemberCards"
	DashboardServiceSendRemindersProcedure   = "/subsplit.v1.DashboardService/SendReminders"
)

// DashboardServiceClient is a client for the DashboardService.
// Read-only projections for the owner.
type DashboardServiceClient interface {
	GetDashboard(context.Context, *connect.Request[api.GetDashboardRequest]) (*connect.Response[api.GetDashboardResponse], error)
	ListMemberCards(context.Context, *connect.Request[api.ListMemberCardsRequest]) (*connect.Response[api.ListMemberCardsResponse], error)
	// SendReminders dispatches a reminder per open payment.
	SendReminders(context.Context, *connect.Request[api.SendRemindersRequest]) (*connect.Response[api.SendRemindersResponse], error)
}

// NewDashboardServiceClient constructs a client for the DashboardService. baseURL is the
// server root, for example http://localhost:8080.
func NewDashboardServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) DashboardServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opt := clientOptions(opts)
	return &dashboardServiceClient{
		getDashboard:    connect.NewClient[api.GetDashboardRequest, api.GetDashboardResponse](httpClient, baseURL+DashboardServiceGetDashboardProcedure, opt),
		listMemberCards: connect.NewClient[api.ListMemberCardsRequest, api.ListMemberCardsResponse](httpClient, baseURL+DashboardServiceListMemberCardsProcedure, opt),
		sendReminders:   connect.NewClient[api.SendRemindersRequest, api.SendRemindersResponse](httpClient, baseURL+DashboardServiceSendRemindersProcedure, opt),
	}
}

type dashboardServiceClient struct {
	getDashboard    *connect.Client[api.GetDashboardRequest, api.GetDashboardResponse]
	listMemberCards *connect.Client[api.ListMemberCardsRequest, api.ListMemberCardsResponse]
	sendReminders   *connect.Client[api.SendRemindersRequest, api.SendRemindersResponse]
}

func (c *dashboardServiceClient) GetDashboard(ctx context.Context, req *connect.Request[api.GetDashboardRequest]) (*connect.Response[api.GetDashboardResponse], error) {
	return c.getDashboard.CallUnary(ctx, req)
}

func (c *dashboardServiceClient) ListMemberCards(ctx context.Context, req *connect.Request[api.ListMemberCardsRequest]) (*connect.Response[api.ListMemberCardsResponse], error) {
	return c.listMemberCards.CallUnary(ctx, req)
}

func (c *dashboardServiceClient) SendReminders(ctx context.Context, req *connect.Request[api.SendRemindersRequest]) (*connect.Response[api.SendRemindersResponse], error) {
	return c.sendReminders.CallUnary(ctx, req)
}

// DashboardServiceHandler is implemented by the server side of the DashboardService.
type DashboardServiceHandler interface {
	GetDashboard(context.Context, *connect.Request[api.GetDashboardRequest]) (*connect.Response[api.GetDashboardResponse], error)
	ListMemberCards(context.Context, *connect.Request[api.ListMemberCardsRequest]) (*connect.Response[api.ListMemberCardsResponse], error)
	SendReminders(context.Context, *connect.Request[api.SendRemindersRequest]) (*connect.Response[api.SendRemindersResponse], error)
}

// NewDashboardServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewDashboardServiceHandler(svc DashboardServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opt := handlerOptions(opts)
	getDashboardHandler := connect.NewUnaryHandler(DashboardServiceGetDashboardProcedure, svc.GetDashboard, opt)
	listMemberCardsHandler := connect.NewUnaryHandler(DashboardServiceListMemberCardsProcedure, svc.ListMemberCards, opt)
	sendRemindersHandler := connect.NewUnaryHandler(DashboardServiceSendRemindersProcedure, svc.SendReminders, opt)
	return "/subsplit.v1.DashboardService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case DashboardServiceGetDashboardProcedure:
			getDashboardHandler.ServeHTTP(w, r)
		case DashboardServiceListMemberCardsProcedure:
			listMemberCardsHandler.ServeHTTP(w, r)
		case DashboardServiceSendRemindersProcedure:
			sendRemindersHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedDashboardServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedDashboardServiceHandler struct{}

func (UnimplementedDashboardServiceHandler) GetDashboard(context.Context, *connect.Request[api.GetDashboardRequest]) (*connect.Response[api.GetDashboardResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.DashboardService.GetDashboard is not implemented"))
}

func (UnimplementedDashboardServiceHandler) ListMemberCards(context.Context, *connect.Request[api.ListMemberCardsRequest]) (*connect.Response[api.ListMemberCardsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.DashboardService.ListMemberCards is not implemented"))
}

func (UnimplementedDashboardServiceHandler) SendReminders(context.Context, *connect.Request[api.SendRemindersRequest]) (*connect.Response[api.SendRemindersResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.DashboardService.SendReminders is not implemented"))
}
