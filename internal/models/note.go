package models

// AuthorKind says who wrote a PaymentNote.
type AuthorKind string

const (
	AuthorOwner  AuthorKind = "owner"
	AuthorMember AuthorKind = "member"
)

// PaymentNote is a free-text annotation on a payment.
// Notes never affect payment state.
type PaymentNote struct {
	ID         string
	PaymentID  string
	AuthorKind AuthorKind
	AuthorID   string
	Body       string
	CreatedAt  int64
}
