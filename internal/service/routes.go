package service

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/subsplit/internal/auth"
	"github.com/mmynk/subsplit/internal/middleware"
	"github.com/mmynk/subsplit/internal/notify"
	"github.com/mmynk/subsplit/internal/reconcile"
	"github.com/mmynk/subsplit/internal/storage"
	"github.com/mmynk/subsplit/pkg/api/apiconnect"
)

// Deps are the collaborators behind the Connect services.
type Deps struct {
	Users         storage.UserStore
	Reconciler    *reconcile.Reconciler
	Authenticator auth.Authenticator
	JWT           *auth.JWTManager
	Dispatcher    notify.Dispatcher
	Logger        *slog.Logger
}

// Register mounts every Connect service on mux. The auth service accepts
// anonymous calls; everything else requires a bearer token.
func Register(mux *http.ServeMux, d Deps) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Dispatcher == nil {
		d.Dispatcher = notify.NewLogDispatcher(d.Logger)
	}

	public := connect.WithInterceptors(middleware.OptionalAuth(d.JWT), middleware.LoggingInterceptor(d.Logger))
	private := connect.WithInterceptors(middleware.RequireAuth(d.JWT), middleware.LoggingInterceptor(d.Logger))

	mux.Handle(apiconnect.NewAuthServiceHandler(
		NewAuthService(d.Authenticator, d.JWT, d.Users, d.Logger), public))
	mux.Handle(apiconnect.NewCatalogServiceHandler(
		NewCatalogService(d.Reconciler, d.Dispatcher, d.Logger), private))
	mux.Handle(apiconnect.NewPaymentServiceHandler(
		NewPaymentService(d.Reconciler, d.Dispatcher, d.Logger), private))
	mux.Handle(apiconnect.NewDashboardServiceHandler(
		NewDashboardService(d.Reconciler, d.Dispatcher, d.Logger), private))
}
