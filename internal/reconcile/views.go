package reconcile

import (
	"context"
	"sort"

	"github.com/mmynk/subsplit/internal/calculator"
	"github.com/mmynk/subsplit/internal/ledger"
	"github.com/mmynk/subsplit/internal/models"
	"github.com/mmynk/subsplit/internal/storage"
)

// snapshot reads the owner's ledger in one transaction so every number in
// a projection comes from the same state.
func (r *Reconciler) snapshot(ctx context.Context, op, ownerID string) (*calculator.Snapshot, error) {
	var snap *calculator.Snapshot
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		var err error
		snap, err = tx.LoadSnapshot(ctx, ownerID)
		return translate(op, err)
	})
	return snap, err
}

// Dashboard returns the owner's totals and pending-debtor list.
func (r *Reconciler) Dashboard(ctx context.Context, ownerID string) (*calculator.Dashboard, error) {
	snap, err := r.snapshot(ctx, "dashboard", ownerID)
	if err != nil {
		return nil, err
	}
	return calculator.Summarize(snap, r.clock()), nil
}

// MemberCards returns one card per member of the owner.
func (r *Reconciler) MemberCards(ctx context.Context, ownerID string) ([]calculator.MemberCard, error) {
	snap, err := r.snapshot(ctx, "member_cards", ownerID)
	if err != nil {
		return nil, err
	}
	return calculator.MemberCards(snap, r.clock()), nil
}

// Reminders builds one reminder per open payment in the owner's current
// cycles, overdue first. Nothing is sent.
func (r *Reconciler) Reminders(ctx context.Context, ownerID string) ([]Notice, error) {
	snap, err := r.snapshot(ctx, "reminders", ownerID)
	if err != nil {
		return nil, err
	}

	members := make(map[string]*models.Member, len(snap.Members))
	for _, m := range snap.Members {
		members[m.ID] = m
	}

	debtors := calculator.PendingDebtors(snap, r.clock())
	notices := make([]Notice, 0, len(debtors))
	for _, d := range debtors {
		n := Notice{
			Kind:        NoticeReminder,
			PaymentID:   d.PaymentID,
			ServiceID:   d.ServiceID,
			ServiceName: d.ServiceName,
			MemberID:    d.MemberID,
			MemberName:  d.MemberName,
			Amount:      d.AmountOwed,
			Remaining:   d.AmountOwed,
			DueDate:     d.DueDate,
		}
		if m, ok := members[d.MemberID]; ok {
			n.Recipient = toMember(m)
		}
		notices = append(notices, n)
	}
	return notices, nil
}

// PaymentView is a payment with its display status.
type PaymentView struct {
	Payment       *models.Payment
	DisplayStatus models.PaymentStatus
	ServiceName   string
	MemberName    string
}

// CyclePayments returns the latest cycle of an owner's service with every
// non-cancelled payment in it.
func (r *Reconciler) CyclePayments(ctx context.Context, ownerID, serviceID string) (*models.BillingCycle, []PaymentView, error) {
	const op = "cycle_payments"

	var (
		cycle *models.BillingCycle
		views []PaymentView
	)
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		svc, err := tx.GetService(ctx, ownerID, serviceID)
		if err != nil {
			return translate(op, err)
		}
		cycle, err = tx.LatestCycle(ctx, serviceID)
		if err != nil {
			return translate(op, err)
		}
		payments, err := tx.ListCyclePayments(ctx, cycle.ID)
		if err != nil {
			return translate(op, err)
		}
		now := r.clock()
		for _, p := range live(payments) {
			m, err := tx.GetMemberByID(ctx, p.MemberID)
			if err != nil {
				return translate(op, err)
			}
			views = append(views, PaymentView{
				Payment:       p,
				DisplayStatus: ledger.DeriveDisplayStatus(p, now),
				ServiceName:   svc.Name,
				MemberName:    m.Name,
			})
		}
		sort.Slice(views, func(i, j int) bool {
			return views[i].MemberName < views[j].MemberName
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return cycle, views, nil
}

// PaymentsForUser returns the payments of every member linked to userID,
// across owners, newest cycle first per service.
func (r *Reconciler) PaymentsForUser(ctx context.Context, userID string) ([]PaymentView, error) {
	const op = "payments_for_user"

	var views []PaymentView
	err := r.store.WithTx(ctx, func(tx storage.Queries) error {
		members, err := tx.ListMembersByUser(ctx, userID)
		if err != nil {
			return translate(op, err)
		}
		now := r.clock()
		for _, m := range members {
			services, err := tx.ListServices(ctx, m.OwnerID)
			if err != nil {
				return translate(op, err)
			}
			for _, svc := range services {
				payments, err := tx.ListMemberPayments(ctx, svc.ID, m.ID)
				if err != nil {
					return translate(op, err)
				}
				for _, p := range live(payments) {
					views = append(views, PaymentView{
						Payment:       p,
						DisplayStatus: ledger.DeriveDisplayStatus(p, now),
						ServiceName:   svc.Name,
						MemberName:    m.Name,
					})
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}
