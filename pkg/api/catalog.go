package api

// Service is a shared subscription.
type Service struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	MonthlyCost string `json:"monthlyCost"`
	BillingDay  int32  `json:"billingDay"`
	// SplitType is "equal" or "custom".
	SplitType string `json:"splitType"`
	// Status is "active" or "paused".
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// Member is a person who shares an owner's services.
type Member struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	UserId    string `json:"userId,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// Membership links a member to a service. CustomAmount is empty unless set.
type Membership struct {
	ServiceId    string `json:"serviceId"`
	MemberId     string `json:"memberId"`
	CustomAmount string `json:"customAmount,omitempty"`
	Active       bool   `json:"active"`
}

// BillingCycle is one billing period. Times are Unix seconds.
type BillingCycle struct {
	Id          string `json:"id"`
	ServiceId   string `json:"serviceId"`
	PeriodStart int64  `json:"periodStart"`
	PeriodEnd   int64  `json:"periodEnd"`
	TotalAmount string `json:"totalAmount"`
}

// MembershipInput assigns a member when creating a service.
type MembershipInput struct {
	MemberId     string `json:"memberId"`
	CustomAmount string `json:"customAmount,omitempty"`
}

type CreateServiceRequest struct {
	Name        string            `json:"name"`
	MonthlyCost string            `json:"monthlyCost"`
	BillingDay  int32             `json:"billingDay"`
	SplitType   string            `json:"splitType"`
	Members     []MembershipInput `json:"members,omitempty"`
}

type CreateServiceResponse struct {
	Service  *Service      `json:"service"`
	Cycle    *BillingCycle `json:"cycle"`
	Payments []*Payment    `json:"payments"`
}

// UpdateServiceRequest changes only the fields that are set.
type UpdateServiceRequest struct {
	ServiceId   string  `json:"serviceId"`
	Name        *string `json:"name,omitempty"`
	MonthlyCost *string `json:"monthlyCost,omitempty"`
	BillingDay  *int32  `json:"billingDay,omitempty"`
	SplitType   *string `json:"splitType,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type UpdateServiceResponse struct {
	Service *Service `json:"service"`
}

type ListServicesRequest struct{}

type ListServicesResponse struct {
	Services []*Service `json:"services"`
}

type CreateMemberRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	UserId string `json:"userId,omitempty"`
}

type CreateMemberResponse struct {
	Member *Member `json:"member"`
}

type UpdateMemberRequest struct {
	MemberId string `json:"memberId"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	UserId   string `json:"userId,omitempty"`
}

type UpdateMemberResponse struct {
	Member *Member `json:"member"`
}

type DeleteMemberRequest struct {
	MemberId string `json:"memberId"`
}

type DeleteMemberResponse struct{}

type ListMembersRequest struct{}

type ListMembersResponse struct {
	Members []*Member `json:"members"`
}

type SetMembershipRequest struct {
	ServiceId    string `json:"serviceId"`
	MemberId     string `json:"memberId"`
	CustomAmount string `json:"customAmount,omitempty"`
}

type SetMembershipResponse struct {
	Membership *Membership `json:"membership"`
	// Payment is set when the member joined an open cycle.
	Payment *Payment `json:"payment,omitempty"`
}

type DeactivateMembershipRequest struct {
	ServiceId string `json:"serviceId"`
	MemberId  string `json:"memberId"`
}

type DeactivateMembershipResponse struct {
	Membership        *Membership `json:"membership"`
	CancelledPayments []*Payment  `json:"cancelledPayments,omitempty"`
}

type ListMembershipsRequest struct {
	ServiceId string `json:"serviceId"`
}

type ListMembershipsResponse struct {
	Memberships []*Membership `json:"memberships"`
}

// GenerateCycleRequest opens the period containing PeriodStart (Unix
// seconds), or the current period when it is zero.
type GenerateCycleRequest struct {
	ServiceId   string `json:"serviceId"`
	PeriodStart int64  `json:"periodStart,omitempty"`
}

type GenerateCycleResponse struct {
	Cycle          *BillingCycle `json:"cycle"`
	Payments       []*Payment    `json:"payments"`
	RolledOver     []*Payment    `json:"rolledOver,omitempty"`
	CreditsApplied string        `json:"creditsApplied"`
	Existing       bool          `json:"existing"`
}
