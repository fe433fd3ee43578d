package models

import "github.com/shopspring/decimal"

// Member is a person who shares the cost of one or more services.
// A Member does not need an account; UserID links one when present.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string

	// OwnerID is the User who manages this member.
	OwnerID string

	// Name is the display name.
	Name string

	// Email and Phone are optional contact details used for notices.
	Email string
	Phone string

	// UserID is the linked account, empty when the member has none.
	// A linked member may claim its own payments.
	UserID string

	// CreatedAt is the Unix timestamp when the member was created.
	CreatedAt int64
}

// ServiceMembership assigns a Member to a Service.
// Removing a member deactivates the membership so past payments stay valid.
type ServiceMembership struct {
	ServiceID string
	MemberID  string

	// CustomAmount is the member's share when the service uses SplitCustom.
	// Nil means no custom amount was set.
	CustomAmount *decimal.Decimal

	Active bool

	// CreatedAt is the Unix timestamp when the member was first assigned.
	CreatedAt int64
}
