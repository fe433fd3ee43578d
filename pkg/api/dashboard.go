package api

type Debtor struct {
	MemberId    string `json:"memberId"`
	MemberName  string `json:"memberName"`
	ServiceId   string `json:"serviceId"`
	ServiceName string `json:"serviceName"`
	PaymentId   string `json:"paymentId"`
	Status      string `json:"status"`
	Overdue     bool   `json:"overdue"`
	AmountOwed  string `json:"amountOwed"`
	DueDate     int64  `json:"dueDate"`
}

type GetDashboardRequest struct{}

type GetDashboardResponse struct {
	TotalReceivable      string    `json:"totalReceivable"`
	TotalCollected       string    `json:"totalCollected"`
	TotalAccumulatedDebt string    `json:"totalAccumulatedDebt"`
	TotalOutstanding     string    `json:"totalOutstanding"`
	OverdueCount         int32     `json:"overdueCount"`
	PaymentCount         int32     `json:"paymentCount"`
	ActiveServiceCount   int32     `json:"activeServiceCount"`
	Debtors              []*Debtor `json:"debtors"`
}

type ServiceLine struct {
	ServiceId       string `json:"serviceId"`
	ServiceName     string `json:"serviceName"`
	MonthlyCost     string `json:"monthlyCost"`
	SplitType       string `json:"splitType"`
	DueAmount       string `json:"dueAmount"`
	LatestStatus    string `json:"latestStatus,omitempty"`
	LatestPaymentId string `json:"latestPaymentId,omitempty"`
}

type MemberCard struct {
	Member        *Member        `json:"member"`
	Services      []*ServiceLine `json:"services"`
	TotalDebt     string         `json:"totalDebt"`
	MonthlyAmount string         `json:"monthlyAmount"`
}

type ListMemberCardsRequest struct{}

type ListMemberCardsResponse struct {
	Cards []*MemberCard `json:"cards"`
}

// SendRemindersRequest dispatches one reminder per open payment in the
// caller's current cycles.
type SendRemindersRequest struct{}

type SendRemindersResponse struct {
	Sent    int32     `json:"sent"`
	Debtors []*Debtor `json:"debtors"`
}
