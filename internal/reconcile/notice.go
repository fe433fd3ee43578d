package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/ledger"
	"github.com/mmynk/subsplit/internal/models"
)

// NoticeKind names a notification payload.
type NoticeKind string

const (
	NoticeClaimSubmitted   NoticeKind = "claim_submitted"
	NoticePaymentConfirmed NoticeKind = "payment_confirmed"
	NoticeClaimRejected    NoticeKind = "claim_rejected"
	NoticePaymentPartial   NoticeKind = "payment_partial"
	NoticePaymentCancelled NoticeKind = "payment_cancelled"
	NoticePaymentDue       NoticeKind = "payment_due"
	NoticeReminder         NoticeKind = "payment_reminder"
)

// RecipientKind says whether a notice goes to the owner or a member.
type RecipientKind string

const (
	RecipientOwner  RecipientKind = "owner"
	RecipientMember RecipientKind = "member"
)

// Recipient is who a notice is addressed to. Contact fields are empty for
// owners; a dispatcher resolves the owner's account from ID.
type Recipient struct {
	Kind  RecipientKind
	ID    string
	Name  string
	Email string
	Phone string
}

// Notice is a notification payload. Building one never sends anything.
type Notice struct {
	Kind      NoticeKind
	Recipient Recipient

	PaymentID   string
	ServiceID   string
	ServiceName string
	MemberID    string
	MemberName  string

	// Amount is the claimed or paid amount, or the owed balance for
	// due and reminder notices.
	Amount decimal.Decimal

	// Remaining is the balance still owed after the event.
	Remaining decimal.Decimal

	DueDate time.Time

	CreditAmount     decimal.Decimal
	ShortfallCarried decimal.Decimal
}

func toOwner(sc *scope) Recipient {
	return Recipient{Kind: RecipientOwner, ID: sc.service.OwnerID}
}

func toMember(m *models.Member) Recipient {
	return Recipient{Kind: RecipientMember, ID: m.ID, Name: m.Name, Email: m.Email, Phone: m.Phone}
}

// noticeFor builds the notice for a successful, non-noop transition.
func noticeFor(ev ledger.EventType, sc *scope, res *Result) *Notice {
	if ev == ledger.EventRecord && res.To == models.StatusPaid {
		// the confirmation that follows sends the notice
		return nil
	}
	p := res.Payment
	n := &Notice{
		PaymentID:        p.ID,
		ServiceID:        sc.service.ID,
		ServiceName:      sc.service.Name,
		MemberID:         sc.member.ID,
		MemberName:       sc.member.Name,
		Amount:           p.AmountPaid,
		Remaining:        decimal.Max(p.Remaining(), decimal.Zero),
		DueDate:          p.DueDate,
		CreditAmount:     res.Effects.CreditAmount,
		ShortfallCarried: res.Effects.ShortfallCarried,
		Recipient:        toMember(sc.member),
	}

	switch {
	case ev == ledger.EventClaim:
		n.Kind = NoticeClaimSubmitted
		n.Recipient = toOwner(sc)
	case ev == ledger.EventReject:
		n.Kind = NoticeClaimRejected
	case ev == ledger.EventCancel:
		n.Kind = NoticePaymentCancelled
	case res.To == models.StatusConfirmed:
		n.Kind = NoticePaymentConfirmed
		if res.Effects.CreditGenerated {
			// the confirmed payment shows the capped amount
			n.Amount = p.AmountPaid.Add(res.Effects.CreditAmount)
		}
	default:
		n.Kind = NoticePaymentPartial
	}
	return n
}

// dueNotice tells a member about a newly generated payment.
func dueNotice(svc *models.Service, m *models.Member, p *models.Payment) Notice {
	return Notice{
		Kind:        NoticePaymentDue,
		Recipient:   toMember(m),
		PaymentID:   p.ID,
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		MemberID:    m.ID,
		MemberName:  m.Name,
		Amount:      p.Owed(),
		Remaining:   p.Remaining(),
		DueDate:     p.DueDate,
	}
}
