package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/subsplit/internal/ledger"
	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/notify"
	"github.com/mmynk/subsplit/internal/reconcile"
	"github.com/mmynk/subsplit/pkg/api"
	"github.com/mmynk/subsplit/pkg/api/apiconnect"
)

var _ apiconnect.PaymentServiceHandler = (*PaymentService)(nil)

// PaymentService implements the Connect PaymentService. Members act through
// the account linked to their member record; owners act on the payments of
// their own services.
type PaymentService struct {
	base
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(r *reconcile.Reconciler, d notify.Dispatcher, logger *slog.Logger) *PaymentService {
	return &PaymentService{base{reconciler: r, dispatcher: d, logger: logger}}
}

// respond logs a lifecycle result, dispatches its notice and wraps it.
func (s *PaymentService) respond(ctx context.Context, procedure string, res *reconcile.Result, err error) (*connect.Response[api.PaymentResponse], error) {
	if err != nil {
		return nil, toConnectError(s.logger, procedure, err)
	}
	s.dispatchOne(ctx, res.Notice)

	s.logger.Info("Payment updated",
		"procedure", procedure,
		"payment_id", res.Payment.ID,
		"from", res.From,
		"to", res.To,
		"outcome", res.Outcome,
	)
	return connect.NewResponse(&api.PaymentResponse{Result: toAPIResult(res)}), nil
}

// ClaimPayment records the caller's claim that they paid.
func (s *PaymentService) ClaimPayment(ctx context.Context, req *connect.Request[api.ClaimPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Msg.Amount)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.ClaimPaymentAsUser(ctx, userID, req.Msg.PaymentId, amount)
	return s.respond(ctx, apiconnect.PaymentServiceClaimPaymentProcedure, res, err)
}

// ConfirmPayment settles a claimed or partial payment.
func (s *PaymentService) ConfirmPayment(ctx context.Context, req *connect.Request[api.ConfirmPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.ConfirmPayment(ctx, ownerID, req.Msg.PaymentId)
	return s.respond(ctx, apiconnect.PaymentServiceConfirmPaymentProcedure, res, err)
}

// RegisterPayment records the total the owner received.
func (s *PaymentService) RegisterPayment(ctx context.Context, req *connect.Request[api.RegisterPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Msg.Amount)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.RegisterPayment(ctx, ownerID, req.Msg.PaymentId, amount)
	return s.respond(ctx, apiconnect.PaymentServiceRegisterPaymentProcedure, res, err)
}

// RegisterAndConfirm registers an amount and confirms the payment. When the
// confirmation fails the registration stands and the response carries the
// reason in ConfirmError.
func (s *PaymentService) RegisterAndConfirm(ctx context.Context, req *connect.Request[api.RegisterPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Msg.Amount)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.RegisterAndConfirm(ctx, ownerID, req.Msg.PaymentId, amount)
	if err == nil && res.ConfirmErr != nil {
		s.logger.Warn("Registered payment left unconfirmed",
			"payment_id", req.Msg.PaymentId,
			"error", res.ConfirmErr,
		)
	}
	return s.respond(ctx, apiconnect.PaymentServiceRegisterAndConfirmProcedure, res, err)
}

// RejectClaim restores a payment to its state before the member's claim.
func (s *PaymentService) RejectClaim(ctx context.Context, req *connect.Request[api.RejectClaimRequest]) (*connect.Response[api.PaymentResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.RejectClaim(ctx, ownerID, req.Msg.PaymentId)
	return s.respond(ctx, apiconnect.PaymentServiceRejectClaimProcedure, res, err)
}

// CancelPayment withdraws a payment.
func (s *PaymentService) CancelPayment(ctx context.Context, req *connect.Request[api.CancelPaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.CancelPayment(ctx, ownerID, req.Msg.PaymentId, models.CancelReason(req.Msg.Reason))
	return s.respond(ctx, apiconnect.PaymentServiceCancelPaymentProcedure, res, err)
}

// authorsFor lists the roles the caller may act in, in the order to try them.
func authorsFor(userID, kind string) ([]reconcile.Author, error) {
	owner := reconcile.Author{Kind: models.AuthorOwner, ID: userID}
	member := reconcile.Author{Kind: models.AuthorMember, UserID: userID}
	switch models.AuthorKind(kind) {
	case "":
		return []reconcile.Author{owner, member}, nil
	case models.AuthorOwner:
		return []reconcile.Author{owner}, nil
	case models.AuthorMember:
		return []reconcile.Author{member}, nil
	default:
		return nil, invalidArgument(errors.New("author_kind must be owner or member"))
	}
}

// AddNote writes a note on a payment as the caller.
func (s *PaymentService) AddNote(ctx context.Context, req *connect.Request[api.AddNoteRequest]) (*connect.Response[api.AddNoteResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	authors, err := authorsFor(userID, req.Msg.AuthorKind)
	if err != nil {
		return nil, err
	}

	var note *models.PaymentNote
	for _, a := range authors {
		note, err = s.reconciler.AddNote(ctx, a, req.Msg.PaymentId, req.Msg.Body)
		if !errors.Is(err, ledger.ErrNotFound) {
			break
		}
	}
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.PaymentServiceAddNoteProcedure, err)
	}

	s.logger.Info("Note added", "payment_id", note.PaymentID, "author_kind", note.AuthorKind)
	return connect.NewResponse(&api.AddNoteResponse{Note: toAPINote(note)}), nil
}

// ListNotes returns the notes on a payment the caller can see.
func (s *PaymentService) ListNotes(ctx context.Context, req *connect.Request[api.ListNotesRequest]) (*connect.Response[api.ListNotesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	authors, err := authorsFor(userID, req.Msg.AuthorKind)
	if err != nil {
		return nil, err
	}

	var notes []*models.PaymentNote
	for _, a := range authors {
		notes, err = s.reconciler.ListNotes(ctx, a, req.Msg.PaymentId)
		if !errors.Is(err, ledger.ErrNotFound) {
			break
		}
	}
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.PaymentServiceListNotesProcedure, err)
	}

	out := make([]*api.Note, 0, len(notes))
	for _, n := range notes {
		out = append(out, toAPINote(n))
	}
	return connect.NewResponse(&api.ListNotesResponse{Notes: out}), nil
}

// ListCyclePayments returns the latest cycle of one of the caller's services.
func (s *PaymentService) ListCyclePayments(ctx context.Context, req *connect.Request[api.ListCyclePaymentsRequest]) (*connect.Response[api.ListCyclePaymentsResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	cycle, views, err := s.reconciler.CyclePayments(ctx, ownerID, req.Msg.ServiceId)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.PaymentServiceListCyclePaymentsProcedure, err)
	}

	out := make([]*api.Payment, 0, len(views))
	for _, v := range views {
		out = append(out, toAPIPaymentView(v))
	}
	return connect.NewResponse(&api.ListCyclePaymentsResponse{
		Cycle:    toAPICycle(cycle),
		Payments: out,
	}), nil
}

// ListMyPayments returns the payments of the members linked to the caller.
func (s *PaymentService) ListMyPayments(ctx context.Context, req *connect.Request[api.ListMyPaymentsRequest]) (*connect.Response[api.ListMyPaymentsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	views, err := s.reconciler.PaymentsForUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, apiconnect.PaymentServiceListMyPaymentsProcedure, err)
	}

	out := make([]*api.Payment, 0, len(views))
	for _, v := range views {
		out = append(out, toAPIPaymentView(v))
	}
	return connect.NewResponse(&api.ListMyPaymentsResponse{Payments: out}), nil
}
