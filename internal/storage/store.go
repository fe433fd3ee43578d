// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/subsplit/internal/calculator"
	"github.com/mmynk/subsplit/internal/models"
)

var (
	// ErrNotFound is returned (wrapped) when a row does not exist or is not
	// visible to the given owner.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned by UpdatePayment when the row changed
	// since it was read.
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("duplicate")

	// ErrInUse is returned when a row cannot be removed because other rows
	// still reference it.
	ErrInUse = errors.New("in use")
)

// Queries is every read and write on the ledger. A Store implements it
// directly, and WithTx hands out an implementation bound to one transaction.
type Queries interface {
	// CreateService persists a new service. ID and CreatedAt are populated.
	CreateService(ctx context.Context, service *models.Service) error
	// GetService returns the service if it belongs to ownerID.
	GetService(ctx context.Context, ownerID, serviceID string) (*models.Service, error)
	ListServices(ctx context.Context, ownerID string) ([]*models.Service, error)
	UpdateService(ctx context.Context, service *models.Service) error

	// CreateMember persists a new member. ID and CreatedAt are populated.
	CreateMember(ctx context.Context, member *models.Member) error
	// GetMember returns the member if it belongs to ownerID.
	GetMember(ctx context.Context, ownerID, memberID string) (*models.Member, error)
	// GetMemberByID returns a member regardless of owner.
	GetMemberByID(ctx context.Context, memberID string) (*models.Member, error)
	ListMembers(ctx context.Context, ownerID string) ([]*models.Member, error)
	// ListMembersByUser returns every member linked to a user account.
	ListMembersByUser(ctx context.Context, userID string) ([]*models.Member, error)
	UpdateMember(ctx context.Context, member *models.Member) error
	// DeleteMember removes the member and its inactive memberships.
	// Returns ErrInUse while payments still reference the member.
	DeleteMember(ctx context.Context, ownerID, memberID string) error

	// SaveMembership inserts or updates the (service, member) membership.
	SaveMembership(ctx context.Context, membership *models.ServiceMembership) error
	GetMembership(ctx context.Context, serviceID, memberID string) (*models.ServiceMembership, error)
	ListMemberships(ctx context.Context, serviceID string) ([]*models.ServiceMembership, error)
	// CountActiveMemberships counts the member's active memberships across services.
	CountActiveMemberships(ctx context.Context, memberID string) (int, error)

	CreateCycle(ctx context.Context, cycle *models.BillingCycle) error
	// LatestCycle returns the most recent cycle of a service, or ErrNotFound.
	LatestCycle(ctx context.Context, serviceID string) (*models.BillingCycle, error)
	GetCycleByStart(ctx context.Context, serviceID string, periodStart time.Time) (*models.BillingCycle, error)

	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	// UpdatePayment writes p if its stored version still equals p.Version,
	// then increments p.Version. Returns ErrVersionConflict otherwise.
	UpdatePayment(ctx context.Context, p *models.Payment) error
	ListCyclePayments(ctx context.Context, cycleID string) ([]*models.Payment, error)
	// ListMemberPayments returns the member's payments on a service, newest cycle first.
	ListMemberPayments(ctx context.Context, serviceID, memberID string) ([]*models.Payment, error)

	CreateCredit(ctx context.Context, credit *models.Credit) error
	UpdateCredit(ctx context.Context, credit *models.Credit) error
	// ListAvailableCredits returns the member's available credits on a service, oldest first.
	ListAvailableCredits(ctx context.Context, memberID, serviceID string) ([]*models.Credit, error)
	ListCreditsByPayment(ctx context.Context, paymentID string) ([]*models.Credit, error)

	CreateNote(ctx context.Context, note *models.PaymentNote) error
	ListNotes(ctx context.Context, paymentID string) ([]*models.PaymentNote, error)

	// LoadSnapshot reads everything an owner's projections need.
	LoadSnapshot(ctx context.Context, ownerID string) (*calculator.Snapshot, error)
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail returns nil, nil when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID returns nil, nil when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store is the full storage backend.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	Queries
	UserStore

	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, so every write made through tx
	// lands together or not at all.
	WithTx(ctx context.Context, fn func(tx Queries) error) error

	// Close releases any resources held by the store.
	Close() error
}
