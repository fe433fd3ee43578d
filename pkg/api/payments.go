package api

// Payment is one member's obligation for one billing cycle.
type Payment struct {
	Id              string `json:"id"`
	CycleId         string `json:"cycleId"`
	ServiceId       string `json:"serviceId"`
	MemberId        string `json:"memberId"`
	AmountDue       string `json:"amountDue"`
	AmountPaid      string `json:"amountPaid"`
	AccumulatedDebt string `json:"accumulatedDebt"`
	AmountOwed      string `json:"amountOwed"`
	Status          string `json:"status"`
	// DisplayStatus is Status with overdue derived from the due date.
	DisplayStatus        string `json:"displayStatus,omitempty"`
	DueDate              int64  `json:"dueDate"`
	PaidAt               int64  `json:"paidAt,omitempty"`
	ConfirmedAt          int64  `json:"confirmedAt,omitempty"`
	RequiresConfirmation bool   `json:"requiresConfirmation"`
	ShortfallCarried     string `json:"shortfallCarried,omitempty"`
	CancelReason         string `json:"cancelReason,omitempty"`
	ServiceName          string `json:"serviceName,omitempty"`
	MemberName           string `json:"memberName,omitempty"`
}

// PaymentResult describes one lifecycle operation.
type PaymentResult struct {
	Payment *Payment `json:"payment"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	// Outcome is "applied", "partial" or "noop".
	Outcome          string `json:"outcome"`
	CreditGenerated  bool   `json:"creditGenerated"`
	CreditAmount     string `json:"creditAmount,omitempty"`
	ShortfallCarried string `json:"shortfallCarried,omitempty"`
	DebtAppliedTo    string `json:"debtAppliedTo,omitempty"`
	// ConfirmError is set when a register-and-confirm could not confirm.
	ConfirmError string `json:"confirmError,omitempty"`
}

type PaymentResponse struct {
	Result *PaymentResult `json:"result"`
}

type ClaimPaymentRequest struct {
	PaymentId string `json:"paymentId"`
	Amount    string `json:"amount"`
}

type ConfirmPaymentRequest struct {
	PaymentId string `json:"paymentId"`
}

// RegisterPaymentRequest is used by RegisterPayment and RegisterAndConfirm.
type RegisterPaymentRequest struct {
	PaymentId string `json:"paymentId"`
	Amount    string `json:"amount"`
}

type RejectClaimRequest struct {
	PaymentId string `json:"paymentId"`
}

type CancelPaymentRequest struct {
	PaymentId string `json:"paymentId"`
	// Reason defaults to "duplicate".
	Reason string `json:"reason,omitempty"`
}

// Note is a comment on a payment.
type Note struct {
	Id         string `json:"id"`
	PaymentId  string `json:"paymentId"`
	AuthorKind string `json:"authorKind"`
	AuthorId   string `json:"authorId"`
	Body       string `json:"body"`
	CreatedAt  int64  `json:"createdAt"`
}

// AddNoteRequest writes a note as the caller. AuthorKind "owner" or "member"
// picks the role; when empty the owner role is tried first.
type AddNoteRequest struct {
	PaymentId  string `json:"paymentId"`
	Body       string `json:"body"`
	AuthorKind string `json:"authorKind,omitempty"`
}

type AddNoteResponse struct {
	Note *Note `json:"note"`
}

type ListNotesRequest struct {
	PaymentId  string `json:"paymentId"`
	AuthorKind string `json:"authorKind,omitempty"`
}

type ListNotesResponse struct {
	Notes []*Note `json:"notes"`
}

type ListCyclePaymentsRequest struct {
	ServiceId string `json:"serviceId"`
}

type ListCyclePaymentsResponse struct {
	Cycle    *BillingCycle `json:"cycle"`
	Payments []*Payment    `json:"payments"`
}

type ListMyPaymentsRequest struct{}

type ListMyPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}
