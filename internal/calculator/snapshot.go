// Package calculator derives read-only projections from an owner's ledger:
// per-member shares, the dashboard summary, the pending-debtor list and
// per-member cards. Every function recomputes from the Snapshot it is given
// and keeps no state between calls.
package calculator

import (
	"time"

	"github.com/mmynk/subsplit/internal/models"
)

// Snapshot is one consistent read of an owner's ledger.
type Snapshot struct {
	Services    []*models.Service
	Members     []*models.Member
	Memberships []*models.ServiceMembership
	Cycles      []*models.BillingCycle
	Payments    []*models.Payment
}

type membershipKey struct {
	ServiceID string
	MemberID  string
}

// index holds lookups built once per projection.
type index struct {
	services    map[string]*models.Service
	members     map[string]*models.Member
	memberships map[membershipKey]*models.ServiceMembership
	cycles      map[string]*models.BillingCycle
	// latestCycle maps a service ID to its most recent cycle ID.
	latestCycle map[string]string
	activeCount map[string]int
}

func buildIndex(s *Snapshot) *index {
	idx := &index{
		services:    make(map[string]*models.Service, len(s.Services)),
		members:     make(map[string]*models.Member, len(s.Members)),
		memberships: make(map[membershipKey]*models.ServiceMembership, len(s.Memberships)),
		cycles:      make(map[string]*models.BillingCycle, len(s.Cycles)),
		latestCycle: make(map[string]string),
		activeCount: ActiveMemberCounts(s.Memberships),
	}
	for _, svc := range s.Services {
		idx.services[svc.ID] = svc
	}
	for _, m := range s.Members {
		idx.members[m.ID] = m
	}
	for _, ms := range s.Memberships {
		idx.memberships[membershipKey{ms.ServiceID, ms.MemberID}] = ms
	}
	for _, c := range s.Cycles {
		idx.cycles[c.ID] = c
		cur, ok := idx.latestCycle[c.ServiceID]
		if !ok || c.PeriodStart.After(idx.cycles[cur].PeriodStart) {
			idx.latestCycle[c.ServiceID] = c.ID
		}
	}
	return idx
}

// counts reports whether a payment belongs to an active service and an
// active membership and is not cancelled.
func (idx *index) counts(p *models.Payment) bool {
	if p.Status == models.StatusCancelled {
		return false
	}
	svc, ok := idx.services[p.ServiceID]
	if !ok || !svc.IsActive() {
		return false
	}
	ms, ok := idx.memberships[membershipKey{p.ServiceID, p.MemberID}]
	return ok && ms.Active
}

// live reports whether a payment is part of its service's current cycle.
func (idx *index) live(p *models.Payment) bool {
	return idx.counts(p) && idx.latestCycle[p.ServiceID] == p.CycleID
}

// periodOf orders payments of the same member and service. Payments whose
// cycle is unknown fall back to their due date.
func (idx *index) periodOf(p *models.Payment) time.Time {
	if c, ok := idx.cycles[p.CycleID]; ok {
		return c.PeriodStart
	}
	return p.DueDate
}

// workingSet returns the payments the dashboard totals and the member cards
// are derived from.
func (idx *index) workingSet(payments []*models.Payment) []*models.Payment {
	return idx.filter(payments, idx.counts)
}

// liveSet narrows the working set to each service's current cycle.
func (idx *index) liveSet(payments []*models.Payment) []*models.Payment {
	return idx.filter(payments, idx.live)
}

func (idx *index) filter(payments []*models.Payment, keep func(*models.Payment) bool) []*models.Payment {
	var out []*models.Payment
	for _, p := range payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
