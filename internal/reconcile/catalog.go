package reconcile

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/ledger"
	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/money"
	"github.com/mmynk/subsplit/internal/storage"
)

// NewMembership assigns a member when a service is created.
type NewMembership struct {
	MemberID     string
	CustomAmount *decimal.Decimal
}

// CreateService stores a new service for ownerID with its initial members
// and opens its current billing cycle.
func (r *Reconciler) CreateService(ctx context.Context, ownerID string, svc *models.Service, members ...NewMembership) (*models.Service, *CycleResult, error) {
	const op = "create_service"

	svc.OwnerID = ownerID
	svc.Name = strings.TrimSpace(svc.Name)
	svc.Status = models.ServiceActive
	if err := svc.Validate(); err != nil {
		return nil, nil, invalidInput(op, err)
	}
	if !money.HasValidScale(svc.MonthlyCost) {
		return nil, nil, ledger.NewError(ledger.KindInvalidAmount, op, "monthly cost %s has more than %d decimal places", svc.MonthlyCost, money.Places)
	}
	for _, nm := range members {
		if err := validateCustomAmount(op, nm.CustomAmount); err != nil {
			return nil, nil, err
		}
	}

	var cycle *CycleResult
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		now := r.clock()
		svc.CreatedAt = now.Unix()
		if err := tx.CreateService(ctx, svc); err != nil {
			return translate(op, err)
		}
		for _, nm := range members {
			if _, err := tx.GetMember(ctx, ownerID, nm.MemberID); err != nil {
				return translate(op, err)
			}
			ms := &models.ServiceMembership{
				ServiceID:    svc.ID,
				MemberID:     nm.MemberID,
				CustomAmount: nm.CustomAmount,
				Active:       true,
				CreatedAt:    now.Unix(),
			}
			if err := tx.SaveMembership(ctx, ms); err != nil {
				return translate(op, err)
			}
		}
		var err error
		cycle, err = r.generateCycle(ctx, tx, ownerID, svc.ID, now)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, cycle, nil
}

// ServiceUpdate holds the editable fields of a service. Nil fields are kept.
type ServiceUpdate struct {
	Name        *string
	MonthlyCost *decimal.Decimal
	BillingDay  *int
	SplitType   *models.SplitType
	Status      *models.ServiceStatus
}

// UpdateService edits a service. Changes apply from the next generated
// cycle; existing payments keep their amounts.
func (r *Reconciler) UpdateService(ctx context.Context, ownerID, serviceID string, upd ServiceUpdate) (*models.Service, error) {
	const op = "update_service"

	var svc *models.Service
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		var err error
		svc, err = tx.GetService(ctx, ownerID, serviceID)
		if err != nil {
			return translate(op, err)
		}
		if upd.Name != nil {
			svc.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.MonthlyCost != nil {
			if !money.HasValidScale(*upd.MonthlyCost) {
				return ledger.NewError(ledger.KindInvalidAmount, op, "monthly cost %s has more than %d decimal places", *upd.MonthlyCost, money.Places)
			}
			svc.MonthlyCost = *upd.MonthlyCost
		}
		if upd.BillingDay != nil {
			svc.BillingDay = *upd.BillingDay
		}
		if upd.SplitType != nil {
			svc.SplitType = *upd.SplitType
		}
		if upd.Status != nil {
			switch *upd.Status {
			case models.ServiceActive, models.ServicePaused:
				svc.Status = *upd.Status
			default:
				return ledger.NewError(ledger.KindInvalidInput, op, "unknown service status %q", *upd.Status)
			}
		}
		if err := svc.Validate(); err != nil {
			return invalidInput(op, err)
		}
		return translate(op, tx.UpdateService(ctx, svc))
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// ListServices returns the owner's services.
func (r *Reconciler) ListServices(ctx context.Context, ownerID string) ([]*models.Service, error) {
	services, err := r.store.ListServices(ctx, ownerID)
	if err != nil {
		return nil, translate("list_services", err)
	}
	return services, nil
}

// CreateMember stores a new member for ownerID.
func (r *Reconciler) CreateMember(ctx context.Context, ownerID string, m *models.Member) (*models.Member, error) {
	const op = "create_member"

	m.OwnerID = ownerID
	if err := validateMember(op, m); err != nil {
		return nil, err
	}
	m.CreatedAt = r.clock().Unix()
	if err := r.store.CreateMember(ctx, m); err != nil {
		return nil, translate(op, err)
	}
	return m, nil
}

// UpdateMember replaces a member's name, contact details and linked account.
func (r *Reconciler) UpdateMember(ctx context.Context, ownerID string, m *models.Member) (*models.Member, error) {
	const op = "update_member"

	m.OwnerID = ownerID
	if err := validateMember(op, m); err != nil {
		return nil, err
	}
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		current, err := tx.GetMember(ctx, ownerID, m.ID)
		if err != nil {
			return translate(op, err)
		}
		m.CreatedAt = current.CreatedAt
		return translate(op, tx.UpdateMember(ctx, m))
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMember removes a member that has no active membership.
func (r *Reconciler) DeleteMember(ctx context.Context, ownerID, memberID string) error {
	const op = "delete_member"

	return r.store.WithTx(ctx, func(tx storage.Queries) error {
		if _, err := tx.GetMember(ctx, ownerID, memberID); err != nil {
			return translate(op, err)
		}
		n, err := tx.CountActiveMemberships(ctx, memberID)
		if err != nil {
			return translate(op, err)
		}
		if n > 0 {
			return ledger.NewError(ledger.KindInvalidState, op, "member still has %d active services", n)
		}
		return translate(op, tx.DeleteMember(ctx, ownerID, memberID))
	})
}

// ListMembers returns the owner's members.
func (r *Reconciler) ListMembers(ctx context.Context, ownerID string) ([]*models.Member, error) {
	members, err := r.store.ListMembers(ctx, ownerID)
	if err != nil {
		return nil, translate("list_members", err)
	}
	return members, nil
}

// MembershipResult is returned when a member joins a service.
type MembershipResult struct {
	Membership *models.ServiceMembership
	// Payment is the member's payment in the current cycle when one had
	// to be created.
	Payment *models.Payment
	Notice  *Notice
}

// SetMembership adds a member to a service, or reactivates them, with an
// optional custom amount. A member joining a service that already has an
// open cycle gets a payment in that cycle.
func (r *Reconciler) SetMembership(ctx context.Context, ownerID, serviceID, memberID string, customAmount *decimal.Decimal) (*MembershipResult, error) {
	const op = "set_membership"

	if err := validateCustomAmount(op, customAmount); err != nil {
		return nil, err
	}

	res := &MembershipResult{}
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		svc, err := tx.GetService(ctx, ownerID, serviceID)
		if err != nil {
			return translate(op, err)
		}
		member, err := tx.GetMember(ctx, ownerID, memberID)
		if err != nil {
			return translate(op, err)
		}

		now := r.clock()
		ms, err := tx.GetMembership(ctx, serviceID, memberID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			ms = &models.ServiceMembership{ServiceID: serviceID, MemberID: memberID, CreatedAt: now.Unix()}
		case err != nil:
			return translate(op, err)
		}
		ms.CustomAmount = customAmount
		ms.Active = true
		if err := tx.SaveMembership(ctx, ms); err != nil {
			return translate(op, err)
		}
		res.Membership = ms

		if !svc.IsActive() {
			return nil
		}
		cycle, err := tx.LatestCycle(ctx, serviceID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return translate(op, err)
		}
		if !now.Before(cycle.PeriodEnd) {
			// the next generated cycle will include the member
			return nil
		}
		payments, err := tx.ListCyclePayments(ctx, cycle.ID)
		if err != nil {
			return translate(op, err)
		}
		for _, p := range live(payments) {
			if p.MemberID == memberID {
				return nil
			}
		}

		memberships, err := tx.ListMemberships(ctx, serviceID)
		if err != nil {
			return translate(op, err)
		}
		active := 0
		for _, other := range memberships {
			if other.Active {
				active++
			}
		}
		p, _, err := r.newPayment(ctx, tx, svc, cycle, ms, active, decimal.Zero, now)
		if err != nil {
			return translate(op, err)
		}
		res.Payment = p
		if p.Status != models.StatusConfirmed {
			n := dueNotice(svc, member, p)
			res.Notice = &n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeactivateResult is returned when a member leaves a service.
type DeactivateResult struct {
	Membership *models.ServiceMembership
	Cancelled  []*models.Payment
}

// DeactivateMembership removes a member from a service. The membership is
// kept inactive and the member's non-terminal payments on the service are
// cancelled.
func (r *Reconciler) DeactivateMembership(ctx context.Context, ownerID, serviceID, memberID string) (*DeactivateResult, error) {
	const op = "deactivate_membership"

	res := &DeactivateResult{}
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		if _, err := tx.GetService(ctx, ownerID, serviceID); err != nil {
			return translate(op, err)
		}
		ms, err := tx.GetMembership(ctx, serviceID, memberID)
		if err != nil {
			return translate(op, err)
		}
		ms.Active = false
		if err := tx.SaveMembership(ctx, ms); err != nil {
			return translate(op, err)
		}
		res.Membership = ms

		payments, err := tx.ListMemberPayments(ctx, serviceID, memberID)
		if err != nil {
			return translate(op, err)
		}
		now := r.clock()
		for _, p := range payments {
			if p.Status.IsTerminal() {
				continue
			}
			t, err := r.machine.Apply(p, ledger.Cancel(models.CancelMembershipDeactivated), now)
			if err != nil {
				return err
			}
			if err := tx.UpdatePayment(ctx, t.After); err != nil {
				return translate(op, err)
			}
			res.Cancelled = append(res.Cancelled, t.After)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListMemberships returns every membership of an owner's service.
func (r *Reconciler) ListMemberships(ctx context.Context, ownerID, serviceID string) ([]*models.ServiceMembership, error) {
	const op = "list_memberships"
	if _, err := r.store.GetService(ctx, ownerID, serviceID); err != nil {
		return nil, translate(op, err)
	}
	memberships, err := r.store.ListMemberships(ctx, serviceID)
	if err != nil {
		return nil, translate(op, err)
	}
	return memberships, nil
}

func validateMember(op string, m *models.Member) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Phone = strings.TrimSpace(m.Phone)
	if m.Name == "" {
		return invalidInput(op, models.ErrEmptyName)
	}
	if m.Email != "" {
		if _, err := mail.ParseAddress(m.Email); err != nil {
			return ledger.NewError(ledger.KindInvalidInput, op, "invalid email %q", m.Email)
		}
	}
	return nil
}

func validateCustomAmount(op string, amount *decimal.Decimal) error {
	if amount == nil {
		return nil
	}
	if amount.IsNegative() || !money.HasValidScale(*amount) {
		return ledger.NewError(ledger.KindInvalidAmount, op, "custom amount %s must be a non-negative amount with at most %d decimal places", amount, money.Places)
	}
	return nil
}

func invalidInput(op string, err error) error {
	if errors.Is(err, models.ErrNonPositiveCost) {
		return ledger.NewError(ledger.KindInvalidAmount, op, "%v", err)
	}
	return ledger.NewError(ledger.KindInvalidInput, op, "%v", err)
}
