package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/subsplit/pkg/api"
)

// PaymentServiceName is the fully-qualified name of the PaymentService.
const PaymentServiceName = "subsplit.v1.PaymentService"

// Procedure paths of the PaymentService.
const (
	PaymentServiceClaimPaymentProcedure       = "/subsplit.v1.PaymentService/ClaimPayment"
	PaymentServiceConfirmPaymentProcedure     = "/subsplit.v1.PaymentService/ConfirmPayment"
	PaymentServiceRegisterPaymentProcedure    = "/subsplit.v1.PaymentService/RegisterPayment"
	PaymentServiceRegisterAndConfirmProcedure = "/subsplit.v1.PaymentService/RegisterAndConfirm"
	PaymentServiceRejectClaimProcedure        = "/subsplit.v1.PaymentService/RejectClaim"
	PaymentServiceCancelPaymentProcedure      = "/subsplit.v1.PaymentService/CancelPayment"
	PaymentServiceAddNoteProcedure            = "/subsplit.v1.PaymentService/AddNote"
	PaymentServiceListNotesProcedure          = "/subsplit.v1.PaymentService/ListNotes"
	PaymentServiceListCyclePaymentsProcedure  = "/subsplit.v1.PaymentService/ListCyclePayments"
	PaymentServiceListMyPaymentsProcedure     = "/subsplit.v1.PaymentService/ListMyPayments"
)

// PaymentServiceClient is a client for the PaymentService.
// The payment lifecycle: claims, confirmations, registrations, rejections, cancellations and notes.
type PaymentServiceClient interface {
	// ClaimPayment records that the caller's member paid an amount.
	ClaimPayment(context.Context, *connect.Request[api.ClaimPaymentRequest]) (*connect.Response[api.PaymentResponse], error)
	// ConfirmPayment settles a claimed or partial payment.
	ConfirmPayment(context.Context, *connect.Request[api.ConfirmPaymentRequest]) (*connect.Response[api.PaymentResponse], error)
	// RegisterPayment records what the owner received without confirming a partial amount.
	RegisterPayment(context.Context, *connect.Request[api.RegisterPaymentRequest]) (*connect.Response[api.PaymentResponse], error)
	// RegisterAndConfirm registers an amount and confirms the payment.
	RegisterAndConfirm(context.Context, *connect.Request[api.RegisterPaymentRequest]) (*connect.Response[api.PaymentResponse], error)
	// RejectClaim undoes a member's claim.
	RejectClaim(context.Context, *connect.Request[api.RejectClaimRequest]) (*connect.Response[api.PaymentResponse], error)
	CancelPayment(context.Context, *connect.Request[api.CancelPaymentRequest]) (*connect.Response[api.PaymentResponse], error)
	AddNote(context.Context, *connect.Request[api.AddNoteRequest]) (*connect.Response[api.AddNoteResponse], error)
	ListNotes(context.Context, *connect.Request[api.ListNotesRequest]) (*connect.Response[api.ListNotesResponse], error)
	// ListCyclePayments returns the latest cycle of a service with its payments.
	ListCyclePayments(context.Context, *connect.Request[api.ListCyclePaymentsRequest]) (*connect.Response[api.ListCyclePaymentsResponse], error)
	// ListMyPayments returns the payments of every member linked to the caller.
	ListMyPayments(context.Context, *connect.Request[api.ListMyPaymentsRequest]) (*connect.Response[api.ListMyPaymentsResponse], error)
}

// NewPaymentServiceClient constructs a client for the PaymentService. baseURL is the
// server root, for example http://localhost:8080.
func NewPaymentServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PaymentServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opt := clientOptions(opts)
	return &paymentServiceClient{
		claimPayment:       connect.NewClient[api.ClaimPaymentRequest, api.PaymentResponse](httpClient, baseURL+PaymentServiceClaimPaymentProcedure, opt),
		confirmPayment:     connect.NewClient[api.ConfirmPaymentRequest, api.PaymentResponse](httpClient, baseURL+PaymentServiceConfirmPaymentProcedure, opt),
		registerPayment:    connect.NewClient[api.RegisterPaymentRequest, api.PaymentResponse](httpClient, baseURL+PaymentServiceRegisterPaymentProcedure, opt),
		registerAndConfirm: connect.NewClient[api.RegisterPaymentRequest, api.PaymentResponse](httpClient, baseURL+PaymentServiceRegisterAndConfirmProcedure, opt),
		rejectClaim:        connect.NewClient[api.RejectClaimRequest, api.PaymentResponse](httpClient, baseURL+PaymentServiceRejectClaimProcedure, opt),
		cancelPayment:      connect.NewClient[api.CancelPaymentRequest, api.PaymentResponse](httpClient, baseURL+PaymentServiceCancelPaymentProcedure, opt),
		addNote:            connect.NewClient[api.AddNoteRequest, api.AddNoteResponse](httpClient, baseURL+PaymentServiceAddNoteProcedure, opt),
		listNotes:          connect.NewClient[api.ListNotesRequest, api.ListNotesResponse](httpClient, baseURL+PaymentServiceListNotesProcedure, opt),
		listCyclePayments:  connect.NewClient[api.ListCyclePaymentsRequest, api.ListCyclePaymentsResponse](httpClient, baseURL+PaymentServiceListCyclePaymentsProcedure, opt),
		listMyPayments:     connect.NewClient[api.ListMyPaymentsRequest, api.ListMyPaymentsResponse](httpClient, baseURL+PaymentServiceListMyPaymentsProcedure, opt),
	}
}

type paymentServiceClient struct {
	claimPayment       *connect.Client[api.ClaimPaymentRequest, api.PaymentResponse]
	confirmPayment     *connect.Client[api.ConfirmPaymentRequest, api.PaymentResponse]
	registerPayment    *connect.Client[api.RegisterPaymentRequest, api.PaymentResponse]
	registerAndConfirm *connect.Client[api.RegisterPaymentRequest, api.PaymentResponse]
	rejectClaim        *connect.Client[api.RejectClaimRequest, api.PaymentResponse]
	cancelPayment      *connect.Client[api.CancelPaymentRequest, api.PaymentResponse]
	addNote            *connect.Client[api.AddNoteRequest, api.AddNoteResponse]
	listNotes          *connect.Client[api.ListNotesRequest, api.ListNotesResponse]
	listCyclePayments  *connect.Client[api.ListCyclePaymentsRequest, api.ListCyclePaymentsResponse]
	listMyPayments     *connect.Client[api.ListMyPaymentsRequest, api.ListMyPaymentsResponse]
}

func (c *paymentServiceClient) ClaimPayment(ctx context.Context, req *connect.Request[api.ClaimPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	return c.claimPayment.CallUnary(ctx, req)
}

func (c *paymentServiceClient) ConfirmPayment(ctx context.Context, req *connect.Request[api.ConfirmPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	return c.confirmPayment.CallUnary(ctx, req)
}

func (c *paymentServiceClient) RegisterPayment(ctx context.Context, req *connect.Request[api.RegisterPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	return c.registerPayment.CallUnary(ctx, req)
}

func (c *paymentServiceClient) RegisterAndConfirm(ctx context.Context, req *connect.Request[api.RegisterPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	return c.registerAndConfirm.CallUnary(ctx, req)
}

func (c *paymentServiceClient) RejectClaim(ctx context.Context, req *connect.Request[api.RejectClaimRequest]) (*connect.Response[api.PaymentResponse], error) {
	return c.rejectClaim.CallUnary(ctx, req)
}

func (c *paymentServiceClient) CancelPayment(ctx context.Context, req *connect.Request[api.CancelPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	return c.cancelPayment.CallUnary(ctx, req)
}

func (c *paymentServiceClient) AddNote(ctx context.Context, req *connect.Request[api.AddNoteRequest]) (*connect.Response[api.AddNoteResponse], error) {
	return c.addNote.CallUnary(ctx, req)
}

func (c *paymentServiceClient) ListNotes(ctx context.Context, req *connect.Request[api.ListNotesRequest]) (*connect.Response[api.ListNotesResponse], error) {
	return c.listNotes.CallUnary(ctx, req)
}

func (c *paymentServiceClient) ListCyclePayments(ctx context.Context, req *connect.Request[api.ListCyclePaymentsRequest]) (*connect.Response[api.ListCyclePaymentsResponse], error) {
	return c.listCyclePayments.CallUnary(ctx, req)
}

func (c *paymentServiceClient) ListMyPayments(ctx context.Context, req *connect.Request[api.ListMyPaymentsRequest]) (*connect.Response[api.ListMyPaymentsResponse], error) {
	return c.listMyPayments.CallUnary(ctx, req)
}

// PaymentServiceHandler is implemented by the server side of the PaymentService.
type PaymentServiceHandler interface {
	ClaimPayment(context.Context, *connect.Request[api.ClaimPaymentRequest]) (*connect.Response[api.PaymentResponse], error)
	ConfirmPayment(context.Context, *connect.Request[api.ConfirmPaymentRequest]) (*connect.Response[api.PaymentResponse], error)
	RegisterPayment(context.Context, *connect.Request[api.RegisterPaymentRequest]) (*connect.Response[api.PaymentResponse], error)
	RegisterAndConfirm(context.Context, *connect.Request[api.RegisterPaymentRequest]) (*connect.Response[api.PaymentResponse], error)
	RejectClaim(context.Context, *connect.Request[api.RejectClaimRequest]) (*connect.Response[api.PaymentResponse], error)
	CancelPayment(context.Context, *connect.Request[api.CancelPaymentRequest]) (*connect.Response[api.PaymentResponse], error)
	AddNote(context.Context, *connect.Request[api.AddNoteRequest]) (*connect.Response[api.AddNoteResponse], error)
	ListNotes(context.Context, *connect.Request[api.ListNotesRequest]) (*connect.Response[api.ListNotesResponse], error)
	ListCyclePayments(context.Context, *connect.Request[api.ListCyclePaymentsRequest]) (*connect.Response[api.ListCyclePaymentsResponse], error)
	ListMyPayments(context.Context, *connect.Request[api.ListMyPaymentsRequest]) (*connect.Response[api.ListMyPaymentsResponse], error)
}

// NewPaymentServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewPaymentServiceHandler(svc PaymentServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opt := handlerOptions(opts)
	claimPaymentHandler := connect.NewUnaryHandler(PaymentServiceClaimPaymentProcedure, svc.ClaimPayment, opt)
	confirmPaymentHandler := connect.NewUnaryHandler(PaymentServiceConfirmPaymentProcedure, svc.ConfirmPayment, opt)
	registerPaymentHandler := connect.NewUnaryHandler(PaymentServiceRegisterPaymentProcedure, svc.RegisterPayment, opt)
	registerAndConfirmHandler := connect.NewUnaryHandler(PaymentServiceRegisterAndConfirmProcedure, svc.RegisterAndConfirm, opt)
	rejectClaimHandler := connect.NewUnaryHandler(PaymentServiceRejectClaimProcedure, svc.RejectClaim, opt)
	cancelPaymentHandler := connect.NewUnaryHandler(PaymentServiceCancelPaymentProcedure, svc.CancelPayment, opt)
	addNoteHandler := connect.NewUnaryHandler(PaymentServiceAddNoteProcedure, svc.AddNote, opt)
	listNotesHandler := connect.NewUnaryHandler(PaymentServiceListNotesProcedure, svc.ListNotes, opt)
	listCyclePaymentsHandler := connect.NewUnaryHandler(PaymentServiceListCyclePaymentsProcedure, svc.ListCyclePayments, opt)
	listMyPaymentsHandler := connect.NewUnaryHandler(PaymentServiceListMyPaymentsProcedure, svc.ListMyPayments, opt)
	return "/subsplit.v1.PaymentService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PaymentServiceClaimPaymentProcedure:
			claimPaymentHandler.ServeHTTP(w, r)
		case PaymentServiceConfirmPaymentProcedure:
			confirmPaymentHandler.ServeHTTP(w, r)
		case PaymentServiceRegisterPaymentProcedure:
			registerPaymentHandler.ServeHTTP(w, r)
		case PaymentServiceRegisterAndConfirmProcedure:
			registerAndConfirmHandler.ServeHTTP(w, r)
		case PaymentServiceRejectClaimProcedure:
			rejectClaimHandler.ServeHTTP(w, r)
		case PaymentServiceCancelPaymentProcedure:
			cancelPaymentHandler.ServeHTTP(w, r)
		case PaymentServiceAddNoteProcedure:
			addNoteHandler.ServeHTTP(w, r)
		case PaymentServiceListNotesProcedure:
			listNotesHandler.ServeHTTP(w, r)
		case PaymentServiceListCyclePaymentsProcedure:
			listCyclePaymentsHandler.ServeHTTP(w, r)
		case PaymentServiceListMyPaymentsProcedure:
			listMyPaymentsHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedPaymentServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedPaymentServiceHandler struct{}

func (UnimplementedPaymentServiceHandler) ClaimPayment(context.Context, *connect.Request[api.ClaimPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.PaymentService.ClaimPayment is not implemented"))
}

func (UnimplementedPaymentServiceHandler) ConfirmPayment(context.Context, *connect.Request[api.ConfirmPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.PaymentService.ConfirmPayment is not implemented"))
}

func (UnimplementedPaymentServiceHandler) RegisterPayment(context.Context, *connect.Request[api.RegisterPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.PaymentService.RegisterPayment is not implemented"))
}

func (UnimplementedPaymentServiceHandler) RegisterAndConfirm(context.Context, *connect.Request[api.RegisterPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.PaymentService.RegisterAndConfirm is not implemented"))
}

func (UnimplementedPaymentServiceHandler) RejectClaim(context.Context, *connect.Request[api.RejectClaimRequest]) (*connect.Response[api.PaymentResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.PaymentService.RejectClaim is not implemented"))
}

func (UnimplementedPaymentServiceHandler) CancelPayment(context.Context, *connect.Request[api.CancelPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.PaymentService.CancelPayment is not implemented"))
}

func (UnimplementedPaymentServiceHandler) AddNote(context.Context, *connect.Request[api.AddNoteRequest]) (*connect.Response[api.AddNoteResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.PaymentService.AddNote is not implemented"))
}

func (UnimplementedPaymentServiceHandler) ListNotes(context.Context, *connect.Request[api.ListNotesRequest]) (*connect.Response[api.ListNotesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.PaymentService.ListNotes is not implemented"))
}

func (UnimplementedPaymentServiceHandler) ListCyclePayments(context.Context, *connect.Request[api.ListCyclePaymentsRequest]) (*connect.Response[api.ListCyclePaymentsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.PaymentService.ListCyclePayments is not implemented"))
}

func (UnimplementedPaymentServiceHandler) ListMyPayments(context.Context, *connect.Request[api.ListMyPaymentsRequest]) (*connect.Response[api.ListMyPaymentsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("subsplit.v1.PaymentService.ListMyPayments is not implemented"))
}
