package reconcile

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/ledger"
	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/storage"
)

// Operation names used in errors, logs and metrics.
const (
	OpClaim              = "claim_payment"
	OpConfirm            = "confirm_payment"
	OpRegister           = "register_payment"
	OpRegisterAndConfirm = "register_and_confirm"
	OpReject             = "reject_claim"
	OpCancel             = "cancel_payment"
	OpAddNote            = "add_note"
)

// MaxNoteLength bounds the body of a payment note.
const MaxNoteLength = 2000

// ClaimPayment records a member's claim that they paid amount. The payment
// waits in paid until the owner confirms or rejects it.
func (r *Reconciler) ClaimPayment(ctx context.Context, memberID, paymentID string, amount decimal.Decimal) (*Result, error) {
	return r.apply(ctx, OpClaim, paymentID, belongsToMember(OpClaim, memberID), ledger.Claim(amount))
}

// ClaimPaymentAsUser is ClaimPayment for a signed-in account: the payment's
// member must be linked to userID.
func (r *Reconciler) ClaimPaymentAsUser(ctx context.Context, userID, paymentID string, amount decimal.Decimal) (*Result, error) {
	return r.apply(ctx, OpClaim, paymentID, linkedToUser(OpClaim, userID), ledger.Claim(amount))
}

// ConfirmPayment settles a claimed or partial payment. Confirming a payment
// that is already confirmed returns OutcomeNoop, including when a concurrent
// request won the race.
func (r *Reconciler) ConfirmPayment(ctx context.Context, ownerID, paymentID string) (*Result, error) {
	res, err := r.apply(ctx, OpConfirm, paymentID, ownedBy(OpConfirm, ownerID), ledger.Confirm())
	if errors.Is(err, ledger.ErrConflict) {
		// Someone else wrote the payment first. If they confirmed it this
		// call is a no-op; otherwise the conflict stands.
		again, retryErr := r.apply(ctx, OpConfirm, paymentID, ownedBy(OpConfirm, ownerID), ledger.Confirm())
		if retryErr == nil && again.Outcome == OutcomeNoop {
			return again, nil
		}
		return nil, err
	}
	return res, err
}

// RegisterPayment records amount as the total the owner received. It is not
// added to earlier payments. The payment is confirmed when amount covers the
// balance and stays partial otherwise.
func (r *Reconciler) RegisterPayment(ctx context.Context, ownerID, paymentID string, amount decimal.Decimal) (*Result, error) {
	return r.apply(ctx, OpRegister, paymentID, ownedBy(OpRegister, ownerID), ledger.Register(amount))
}

// RegisterAndConfirm records amount and then confirms the payment. The two
// steps commit separately. An amount short of the balance leaves the payment
// partial without confirming it; a failed confirmation leaves it paid. Both
// return OutcomePartial with ConfirmErr saying why, which is a successful
// call, not an error. A short amount can still be accepted as final with
// ConfirmPayment.
func (r *Reconciler) RegisterAndConfirm(ctx context.Context, ownerID, paymentID string, amount decimal.Decimal) (*Result, error) {
	rec, err := r.apply(ctx, OpRegisterAndConfirm, paymentID, ownedBy(OpRegisterAndConfirm, ownerID), ledger.Record(amount))
	if err != nil {
		return nil, err
	}
	if rec.To != models.StatusPaid {
		rec.Outcome = OutcomePartial
		rec.ConfirmErr = ledger.NewError(ledger.KindInvalidAmount, OpRegisterAndConfirm,
			"amount %s does not cover the owed balance %s", amount, rec.Payment.Owed())
		return rec, nil
	}

	conf, err := r.ConfirmPayment(ctx, ownerID, paymentID)
	if err != nil {
		rec.Outcome = OutcomePartial
		rec.ConfirmErr = err
		return rec, nil
	}
	conf.From = rec.From
	return conf, nil
}

// RejectClaim undoes a member claim and restores the payment to exactly
// what it was before the claim.
func (r *Reconciler) RejectClaim(ctx context.Context, ownerID, paymentID string) (*Result, error) {
	return r.apply(ctx, OpReject, paymentID, ownedBy(OpReject, ownerID), ledger.Reject())
}

// CancelPayment cancels a non-terminal payment.
func (r *Reconciler) CancelPayment(ctx context.Context, ownerID, paymentID string, reason models.CancelReason) (*Result, error) {
	if reason == "" {
		reason = models.CancelDuplicate
	}
	return r.apply(ctx, OpCancel, paymentID, ownedBy(OpCancel, ownerID), ledger.Cancel(reason))
}

// Author identifies who is writing a note.
type Author struct {
	Kind models.AuthorKind
	// ID is the owner's user ID or the member's ID.
	ID string
	// UserID is the signed-in account, used to check a member author.
	UserID string
}

// AddNote attaches a note to a payment. Owners may annotate any payment of
// their services, members only their own payments.
func (r *Reconciler) AddNote(ctx context.Context, author Author, paymentID, body string) (*models.PaymentNote, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ledger.NewError(ledger.KindInvalidInput, OpAddNote, "note body is empty")
	}
	if len(body) > MaxNoteLength {
		return nil, ledger.NewError(ledger.KindInvalidInput, OpAddNote, "note is longer than %d bytes", MaxNoteLength)
	}

	var note *models.PaymentNote
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		sc, err := loadScope(ctx, tx, OpAddNote, paymentID)
		if err != nil {
			return err
		}
		if err := authorizeAuthor(OpAddNote, author)(sc); err != nil {
			return err
		}
		authorID := author.ID
		if author.Kind == models.AuthorMember {
			authorID = sc.payment.MemberID
		}
		note = &models.PaymentNote{
			PaymentID:  paymentID,
			AuthorKind: author.Kind,
			AuthorID:   authorID,
			Body:       body,
			CreatedAt:  r.clock().Unix(),
		}
		return translate(OpAddNote, tx.CreateNote(ctx, note))
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotes returns the notes on a payment, oldest first.
func (r *Reconciler) ListNotes(ctx context.Context, reader Author, paymentID string) ([]*models.PaymentNote, error) {
	const op = "list_notes"
	var notes []*models.PaymentNote
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		sc, err := loadScope(ctx, tx, op, paymentID)
		if err != nil {
			return err
		}
		if err := authorizeAuthor(op, reader)(sc); err != nil {
			return err
		}
		notes, err = tx.ListNotes(ctx, paymentID)
		return translate(op, err)
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func authorizeAuthor(op string, a Author) authorizer {
	switch a.Kind {
	case models.AuthorOwner:
		return ownedBy(op, a.ID)
	case models.AuthorMember:
		if a.UserID != "" {
			return linkedToUser(op, a.UserID)
		}
		return belongsToMember(op, a.ID)
	default:
		return func(*scope) error {
			return ledger.NewError(ledger.KindInvalidInput, op, "unknown author kind %q", a.Kind)
		}
	}
}
