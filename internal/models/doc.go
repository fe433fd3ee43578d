// Package models defines the ledger entities for subsplit.
//
// # Entities
//
//   - User: a registered account. Every Service and Member is owned by one User.
//   - Service: a recurring subscription whose monthly cost is shared.
//   - Member: a person charged for services; may link to a User to self-report payments.
//   - ServiceMembership: assignment of a Member to a Service.
//   - BillingCycle: one billing period of a Service.
//   - Payment: what one Member owes for one BillingCycle, and how much is settled.
//   - Credit: overpayment kept for a Member on a Service.
//   - PaymentNote: free-text annotation on a Payment.
//
// # Conventions
//
// Relationships are expressed with ID strings, never pointers. Money is
// decimal.Decimal, never float64. CreatedAt fields are Unix seconds; dates
// that drive behavior (due dates, periods, payment timestamps) are time.Time.
//
// Models carry shape and invariants only. State changes on Payment go through
// package ledger.
package models
