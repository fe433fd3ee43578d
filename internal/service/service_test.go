package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/subsplit/internal/auth"
	"github.com/mmynk/subsplit/internal/ledger"
	"github.com/mmynk/subsplit/internal/notify"
	"github.com/mmynk/subsplit/internal/reconcile"
	"github.com/mmynk/subsplit/internal/storage/sqlite"
	"github.com/mmynk/subsplit/pkg/api"
	"github.com/mmynk/subsplit/pkg/api/apiconnect"
)

type testServer struct {
	auth      apiconnect.AuthServiceClient
	catalog   apiconnect.CatalogServiceClient
	payments  apiconnect.PaymentServiceClient
	dashboard apiconnect.DashboardServiceClient
	notices   *notify.Recorder
}

// setupTestServer starts every service against a fresh database with the
// clock fixed at 2026-03-10.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	recorder := &notify.Recorder{}
	logger := slog.New(slog.DiscardHandler)

	mux := http.NewServeMux()
	Register(mux, Deps{
		Users:         store,
		Reconciler:    reconcile.New(store, reconcile.Config{Clock: func() time.Time { return now }}),
		Authenticator: auth.NewPasswordAuthenticatorWithCost(store, bcrypt.MinCost),
		JWT:           auth.NewJWTManager("test-secret", time.Hour),
		Dispatcher:    recorder,
		Logger:        logger,
	})

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testServer{
		auth:      apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL),
		catalog:   apiconnect.NewCatalogServiceClient(http.DefaultClient, server.URL),
		payments:  apiconnect.NewPaymentServiceClient(http.DefaultClient, server.URL),
		dashboard: apiconnect.NewDashboardServiceClient(http.DefaultClient, server.URL),
		notices:   recorder,
	}
}

func authed[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func (s *testServer) register(t *testing.T, email, name string) (*api.User, string) {
	t.Helper()
	resp, err := s.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       email,
		DisplayName: name,
		Password:    "password123",
	}))
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return resp.Msg.User, resp.Msg.Token
}

func expectCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil error", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("expected %v, got %v (%v)", want, got, err)
	}
}

func noticeKinds(r *notify.Recorder) []reconcile.NoticeKind {
	var kinds []reconcile.NoticeKind
	for _, n := range r.Notices() {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func TestAuthService(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	user, token := s.register(t, "owner@example.com", "Owner")
	if token == "" {
		t.Fatal("expected a token")
	}

	t.Run("login", func(t *testing.T) {
		resp, err := s.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
			Email:    "owner@example.com",
			Password: "password123",
		}))
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if resp.Msg.User.Id != user.Id {
			t.Errorf("expected user %s, got %s", user.Id, resp.Msg.User.Id)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
			Email:    "owner@example.com",
			Password: "wrong-password",
		}))
		expectCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := s.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
			Email:       "OWNER@example.com",
			DisplayName: "Other",
			Password:    "password123",
		}))
		expectCode(t, err, connect.CodeAlreadyExists)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := s.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
			Email:       "weak@example.com",
			DisplayName: "Weak",
			Password:    "short",
		}))
		expectCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("current user", func(t *testing.T) {
		resp, err := s.auth.GetCurrentUser(ctx, authed(&api.GetCurrentUserRequest{}, token))
		if err != nil {
			t.Fatalf("GetCurrentUser failed: %v", err)
		}
		if resp.Msg.User.DisplayName != "Owner" {
			t.Errorf("expected display name Owner, got %q", resp.Msg.User.DisplayName)
		}
	})

	t.Run("current user without token", func(t *testing.T) {
		_, err := s.auth.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
		expectCode(t, err, connect.CodeUnauthenticated)
	})
}

func TestOwnerEndpointsRequireToken(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	_, err := s.catalog.ListServices(ctx, connect.NewRequest(&api.ListServicesRequest{}))
	expectCode(t, err, connect.CodeUnauthenticated)

	_, err = s.dashboard.GetDashboard(ctx, authed(&api.GetDashboardRequest{}, "not-a-token"))
	expectCode(t, err, connect.CodeUnauthenticated)
}

func TestPaymentLifecycle(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	_, ownerToken := s.register(t, "owner@example.com", "Owner")
	anaUser, anaToken := s.register(t, "ana@example.com", "Ana")

	// Members
	ana, err := s.catalog.CreateMember(ctx, authed(&api.CreateMemberRequest{
		Name:   "Ana",
		Email:  "ana@example.com",
		UserId: anaUser.Id,
	}, ownerToken))
	if err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}
	ben, err := s.catalog.CreateMember(ctx, authed(&api.CreateMemberRequest{Name: "Ben"}, ownerToken))
	if err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}
	anaID, benID := ana.Msg.Member.Id, ben.Msg.Member.Id

	// Service with both members opens the March cycle
	created, err := s.catalog.CreateService(ctx, authed(&api.CreateServiceRequest{
		Name:        "Netflix",
		MonthlyCost: "300",
		BillingDay:  1,
		SplitType:   "equal",
		Members:     []api.MembershipInput{{MemberId: anaID}, {MemberId: benID}},
	}, ownerToken))
	if err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}
	serviceID := created.Msg.Service.Id
	if len(created.Msg.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(created.Msg.Payments))
	}
	payments := make(map[string]*api.Payment)
	for _, p := range created.Msg.Payments {
		payments[p.MemberId] = p
		if p.AmountDue != "100" {
			t.Errorf("expected amount due 100, got %s", p.AmountDue)
		}
	}
	wantDue := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC).Unix()
	if payments[anaID].DueDate != wantDue {
		t.Errorf("expected due date %d, got %d", wantDue, payments[anaID].DueDate)
	}
	if got := len(s.notices.Notices()); got != 2 {
		t.Errorf("expected 2 due notices, got %d", got)
	}
	s.notices.Reset()

	t.Run("member sees only their payment", func(t *testing.T) {
		resp, err := s.payments.ListMyPayments(ctx, authed(&api.ListMyPaymentsRequest{}, anaToken))
		if err != nil {
			t.Fatalf("ListMyPayments failed: %v", err)
		}
		if len(resp.Msg.Payments) != 1 {
			t.Fatalf("expected 1 payment, got %d", len(resp.Msg.Payments))
		}
		p := resp.Msg.Payments[0]
		if p.Id != payments[anaID].Id || p.ServiceName != "Netflix" {
			t.Errorf("unexpected payment: %+v", p)
		}
		if p.DisplayStatus != "overdue" {
			t.Errorf("expected overdue display status, got %s", p.DisplayStatus)
		}
	})

	t.Run("member cannot claim someone else's payment", func(t *testing.T) {
		_, err := s.payments.ClaimPayment(ctx, authed(&api.ClaimPaymentRequest{
			PaymentId: payments[benID].Id,
			Amount:    "100",
		}, anaToken))
		expectCode(t, err, connect.CodeNotFound)
	})

	t.Run("claim validation", func(t *testing.T) {
		_, err := s.payments.ClaimPayment(ctx, authed(&api.ClaimPaymentRequest{
			PaymentId: payments[anaID].Id,
			Amount:    "0",
		}, anaToken))
		expectCode(t, err, connect.CodeInvalidArgument)

		_, err = s.payments.ClaimPayment(ctx, authed(&api.ClaimPaymentRequest{
			PaymentId: payments[anaID].Id,
			Amount:    "ten",
		}, anaToken))
		expectCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("claim then confirm", func(t *testing.T) {
		claim, err := s.payments.ClaimPayment(ctx, authed(&api.ClaimPaymentRequest{
			PaymentId: payments[anaID].Id,
			Amount:    "100",
		}, anaToken))
		if err != nil {
			t.Fatalf("ClaimPayment failed: %v", err)
		}
		if claim.Msg.Result.To != "paid" {
			t.Errorf("expected paid, got %s", claim.Msg.Result.To)
		}

		confirm, err := s.payments.ConfirmPayment(ctx, authed(&api.ConfirmPaymentRequest{
			PaymentId: payments[anaID].Id,
		}, ownerToken))
		if err != nil {
			t.Fatalf("ConfirmPayment failed: %v", err)
		}
		if confirm.Msg.Result.To != "confirmed" || confirm.Msg.Result.Outcome != "applied" {
			t.Errorf("unexpected result: %+v", confirm.Msg.Result)
		}

		again, err := s.payments.ConfirmPayment(ctx, authed(&api.ConfirmPaymentRequest{
			PaymentId: payments[anaID].Id,
		}, ownerToken))
		if err != nil {
			t.Fatalf("second ConfirmPayment failed: %v", err)
		}
		if again.Msg.Result.Outcome != "noop" {
			t.Errorf("expected noop, got %s", again.Msg.Result.Outcome)
		}

		kinds := noticeKinds(s.notices)
		if len(kinds) != 2 || kinds[0] != reconcile.NoticeClaimSubmitted || kinds[1] != reconcile.NoticePaymentConfirmed {
			t.Errorf("unexpected notices: %v", kinds)
		}
	})

	t.Run("member cannot confirm", func(t *testing.T) {
		_, err := s.payments.ConfirmPayment(ctx, authed(&api.ConfirmPaymentRequest{
			PaymentId: payments[benID].Id,
		}, anaToken))
		expectCode(t, err, connect.CodeNotFound)
	})

	t.Run("reject needs a claim", func(t *testing.T) {
		_, err := s.payments.RejectClaim(ctx, authed(&api.RejectClaimRequest{
			PaymentId: payments[benID].Id,
		}, ownerToken))
		expectCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("register and confirm a short amount", func(t *testing.T) {
		resp, err := s.payments.RegisterAndConfirm(ctx, authed(&api.RegisterPaymentRequest{
			PaymentId: payments[benID].Id,
			Amount:    "40",
		}, ownerToken))
		if err != nil {
			t.Fatalf("RegisterAndConfirm failed: %v", err)
		}
		res := resp.Msg.Result
		if res.Outcome != "partial" || res.To != "partial" {
			t.Errorf("expected a partial outcome, got %s / %s", res.Outcome, res.To)
		}
		if res.ConfirmError == "" {
			t.Error("expected the reason the payment was not confirmed")
		}
		if res.Payment.AmountPaid != "40" {
			t.Errorf("expected 40 recorded, got %s", res.Payment.AmountPaid)
		}

		// the owner accepts the short amount as final
		confirmed, err := s.payments.ConfirmPayment(ctx, authed(&api.ConfirmPaymentRequest{
			PaymentId: payments[benID].Id,
		}, ownerToken))
		if err != nil {
			t.Fatalf("ConfirmPayment failed: %v", err)
		}
		if confirmed.Msg.Result.To != "confirmed" {
			t.Errorf("expected confirmed, got %s", confirmed.Msg.Result.To)
		}
		if confirmed.Msg.Result.ShortfallCarried != "60" {
			t.Errorf("expected shortfall 60, got %q", confirmed.Msg.Result.ShortfallCarried)
		}
	})

	t.Run("notes", func(t *testing.T) {
		_, err := s.payments.AddNote(ctx, authed(&api.AddNoteRequest{
			PaymentId: payments[anaID].Id,
			Body:      "paid by bank transfer",
		}, anaToken))
		if err != nil {
			t.Fatalf("member AddNote failed: %v", err)
		}
		_, err = s.payments.AddNote(ctx, authed(&api.AddNoteRequest{
			PaymentId: payments[anaID].Id,
			Body:      "received",
		}, ownerToken))
		if err != nil {
			t.Fatalf("owner AddNote failed: %v", err)
		}
		_, err = s.payments.AddNote(ctx, authed(&api.AddNoteRequest{
			PaymentId: payments[anaID].Id,
			Body:      "   ",
		}, ownerToken))
		expectCode(t, err, connect.CodeInvalidArgument)

		resp, err := s.payments.ListNotes(ctx, authed(&api.ListNotesRequest{
			PaymentId: payments[anaID].Id,
		}, anaToken))
		if err != nil {
			t.Fatalf("ListNotes failed: %v", err)
		}
		if len(resp.Msg.Notes) != 2 {
			t.Fatalf("expected 2 notes, got %d", len(resp.Msg.Notes))
		}
		kinds := map[string]bool{}
		for _, n := range resp.Msg.Notes {
			kinds[n.AuthorKind] = true
		}
		if !kinds["owner"] || !kinds["member"] {
			t.Errorf("expected notes from owner and member, got %v", kinds)
		}

		_, err = s.payments.ListNotes(ctx, authed(&api.ListNotesRequest{
			PaymentId: payments[benID].Id,
		}, anaToken))
		expectCode(t, err, connect.CodeNotFound)
	})

	t.Run("cycle payments", func(t *testing.T) {
		resp, err := s.payments.ListCyclePayments(ctx, authed(&api.ListCyclePaymentsRequest{
			ServiceId: serviceID,
		}, ownerToken))
		if err != nil {
			t.Fatalf("ListCyclePayments failed: %v", err)
		}
		if len(resp.Msg.Payments) != 2 {
			t.Fatalf("expected 2 payments, got %d", len(resp.Msg.Payments))
		}
		if resp.Msg.Payments[0].MemberName != "Ana" || resp.Msg.Payments[1].MemberName != "Ben" {
			t.Errorf("expected payments sorted by member name")
		}
		for _, p := range resp.Msg.Payments {
			if p.Status != "confirmed" {
				t.Errorf("expected confirmed, got %s for %s", p.Status, p.MemberName)
			}
		}
	})

	t.Run("next cycle carries the shortfall", func(t *testing.T) {
		april := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		resp, err := s.catalog.GenerateCycle(ctx, authed(&api.GenerateCycleRequest{
			ServiceId:   serviceID,
			PeriodStart: april.Unix(),
		}, ownerToken))
		if err != nil {
			t.Fatalf("GenerateCycle failed: %v", err)
		}
		if resp.Msg.Existing {
			t.Error("expected a new cycle")
		}
		for _, p := range resp.Msg.Payments {
			want := "0"
			if p.MemberId == benID {
				want = "60"
			}
			if p.AccumulatedDebt != want {
				t.Errorf("member %s: expected debt %s, got %s", p.MemberId, want, p.AccumulatedDebt)
			}
		}

		again, err := s.catalog.GenerateCycle(ctx, authed(&api.GenerateCycleRequest{
			ServiceId:   serviceID,
			PeriodStart: april.Unix(),
		}, ownerToken))
		if err != nil {
			t.Fatalf("second GenerateCycle failed: %v", err)
		}
		if !again.Msg.Existing || again.Msg.Cycle.Id != resp.Msg.Cycle.Id {
			t.Error("expected the existing cycle back")
		}
	})
}

func TestCatalogService(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	_, ownerToken := s.register(t, "owner@example.com", "Owner")
	_, otherToken := s.register(t, "other@example.com", "Other")

	member, err := s.catalog.CreateMember(ctx, authed(&api.CreateMemberRequest{Name: "Ana"}, ownerToken))
	if err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}
	memberID := member.Msg.Member.Id

	t.Run("invalid service", func(t *testing.T) {
		_, err := s.catalog.CreateService(ctx, authed(&api.CreateServiceRequest{
			Name:        "Bad",
			MonthlyCost: "10",
			BillingDay:  32,
		}, ownerToken))
		expectCode(t, err, connect.CodeInvalidArgument)

		_, err = s.catalog.CreateService(ctx, authed(&api.CreateServiceRequest{
			Name:       "Free",
			BillingDay: 1,
		}, ownerToken))
		expectCode(t, err, connect.CodeInvalidArgument)
	})

	created, err := s.catalog.CreateService(ctx, authed(&api.CreateServiceRequest{
		Name:        "Spotify",
		MonthlyCost: "16",
		BillingDay:  1,
		SplitType:   "custom",
	}, ownerToken))
	if err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}
	serviceID := created.Msg.Service.Id

	t.Run("owner scoping", func(t *testing.T) {
		resp, err := s.catalog.ListServices(ctx, authed(&api.ListServicesRequest{}, otherToken))
		if err != nil {
			t.Fatalf("ListServices failed: %v", err)
		}
		if len(resp.Msg.Services) != 0 {
			t.Errorf("expected no services for another owner, got %d", len(resp.Msg.Services))
		}
		_, err = s.catalog.ListMemberships(ctx, authed(&api.ListMembershipsRequest{ServiceId: serviceID}, otherToken))
		expectCode(t, err, connect.CodeNotFound)
	})

	t.Run("join mid-cycle", func(t *testing.T) {
		resp, err := s.catalog.SetMembership(ctx, authed(&api.SetMembershipRequest{
			ServiceId:    serviceID,
			MemberId:     memberID,
			CustomAmount: "6.50",
		}, ownerToken))
		if err != nil {
			t.Fatalf("SetMembership failed: %v", err)
		}
		if resp.Msg.Membership.CustomAmount != "6.5" {
			t.Errorf("expected custom amount 6.5, got %q", resp.Msg.Membership.CustomAmount)
		}
		if resp.Msg.Payment == nil || resp.Msg.Payment.AmountDue != "6.5" {
			t.Errorf("expected a 6.5 payment in the open cycle, got %+v", resp.Msg.Payment)
		}
	})

	t.Run("member with active membership cannot be deleted", func(t *testing.T) {
		_, err := s.catalog.DeleteMember(ctx, authed(&api.DeleteMemberRequest{MemberId: memberID}, ownerToken))
		expectCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("deactivate cancels open payments", func(t *testing.T) {
		resp, err := s.catalog.DeactivateMembership(ctx, authed(&api.DeactivateMembershipRequest{
			ServiceId: serviceID,
			MemberId:  memberID,
		}, ownerToken))
		if err != nil {
			t.Fatalf("DeactivateMembership failed: %v", err)
		}
		if resp.Msg.Membership.Active {
			t.Error("expected inactive membership")
		}
		if len(resp.Msg.CancelledPayments) != 1 || resp.Msg.CancelledPayments[0].CancelReason != "membership_deactivated" {
			t.Errorf("unexpected cancelled payments: %+v", resp.Msg.CancelledPayments)
		}
	})

	t.Run("pause", func(t *testing.T) {
		paused := "paused"
		resp, err := s.catalog.UpdateService(ctx, authed(&api.UpdateServiceRequest{
			ServiceId: serviceID,
			Status:    &paused,
		}, ownerToken))
		if err != nil {
			t.Fatalf("UpdateService failed: %v", err)
		}
		if resp.Msg.Service.Status != "paused" || resp.Msg.Service.Name != "Spotify" {
			t.Errorf("unexpected service: %+v", resp.Msg.Service)
		}
		_, err = s.catalog.GenerateCycle(ctx, authed(&api.GenerateCycleRequest{
			ServiceId:   serviceID,
			PeriodStart: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).Unix(),
		}, ownerToken))
		expectCode(t, err, connect.CodeFailedPrecondition)
	})
}

func TestDashboardService(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	_, ownerToken := s.register(t, "owner@example.com", "Owner")

	var members []api.MembershipInput
	for _, name := range []string{"Ana", "Ben"} {
		resp, err := s.catalog.CreateMember(ctx, authed(&api.CreateMemberRequest{Name: name}, ownerToken))
		if err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
		members = append(members, api.MembershipInput{MemberId: resp.Msg.Member.Id})
	}
	if _, err := s.catalog.CreateService(ctx, authed(&api.CreateServiceRequest{
		Name:        "Netflix",
		MonthlyCost: "300",
		BillingDay:  1,
		Members:     members,
	}, ownerToken)); err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}
	s.notices.Reset()

	dash, err := s.dashboard.GetDashboard(ctx, authed(&api.GetDashboardRequest{}, ownerToken))
	if err != nil {
		t.Fatalf("GetDashboard failed: %v", err)
	}
	if dash.Msg.TotalReceivable != "200.00" || dash.Msg.TotalCollected != "0.00" {
		t.Errorf("unexpected totals: receivable %s, collected %s", dash.Msg.TotalReceivable, dash.Msg.TotalCollected)
	}
	if dash.Msg.TotalOutstanding != "200.00" {
		t.Errorf("expected outstanding 200.00, got %s", dash.Msg.TotalOutstanding)
	}
	if dash.Msg.OverdueCount != 2 || len(dash.Msg.Debtors) != 2 {
		t.Errorf("expected 2 overdue debtors, got %d / %d", dash.Msg.OverdueCount, len(dash.Msg.Debtors))
	}

	cards, err := s.dashboard.ListMemberCards(ctx, authed(&api.ListMemberCardsRequest{}, ownerToken))
	if err != nil {
		t.Fatalf("ListMemberCards failed: %v", err)
	}
	if len(cards.Msg.Cards) != 2 || cards.Msg.Cards[0].Member.Name != "Ana" {
		t.Fatalf("unexpected cards: %+v", cards.Msg.Cards)
	}
	if cards.Msg.Cards[0].TotalDebt != "100" {
		t.Errorf("expected debt 100, got %s", cards.Msg.Cards[0].TotalDebt)
	}

	sent, err := s.dashboard.SendReminders(ctx, authed(&api.SendRemindersRequest{}, ownerToken))
	if err != nil {
		t.Fatalf("SendReminders failed: %v", err)
	}
	if sent.Msg.Sent != 2 {
		t.Errorf("expected 2 reminders, got %d", sent.Msg.Sent)
	}
	for _, kind := range noticeKinds(s.notices) {
		if kind != reconcile.NoticeReminder {
			t.Errorf("unexpected notice kind %s", kind)
		}
	}
}

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(context.Context, ...reconcile.Notice) error {
	return errors.New("smtp down")
}

func TestToConnectError(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	tests := []struct {
		err  error
		want connect.Code
	}{
		{ledger.NewError(ledger.KindNotFound, "confirm_payment", "payment p-1 not found"), connect.CodeNotFound},
		{ledger.NewError(ledger.KindInvalidState, "reject_claim", "no claim"), connect.CodeFailedPrecondition},
		{ledger.NewError(ledger.KindInvalidAmount, "claim_payment", "zero"), connect.CodeInvalidArgument},
		{ledger.NewError(ledger.KindInvalidInput, "create_member", "empty name"), connect.CodeInvalidArgument},
		{ledger.NewError(ledger.KindConflict, "confirm_payment", "stale"), connect.CodeAborted},
		{fmt.Errorf("wrapped: %w", ledger.ErrConflict), connect.CodeAborted},
		{errors.New("disk full"), connect.CodeInternal},
		{connect.NewError(connect.CodeUnauthenticated, errors.New("no")), connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		if got := connect.CodeOf(toConnectError(logger, "/x", tt.err)); got != tt.want {
			t.Errorf("toConnectError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestDispatchFailureDoesNotFailRequest(t *testing.T) {
	b := &base{dispatcher: failingDispatcher{}, logger: slog.New(slog.DiscardHandler)}
	// logged, not returned
	b.dispatch(context.Background(), reconcile.Notice{Kind: reconcile.NoticeReminder})
	b.dispatchOne(context.Background(), nil)
}
