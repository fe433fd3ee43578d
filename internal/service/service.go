// Package service implements the Connect handlers on top of the reconciler.
package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/subsplit/internal/auth"
	"github.com/mmynk/subsplit/internal/middleware"
	"github.com/mmynk/subsplit/internal/notify"
	"github.com/mmynk/subsplit/internal/reconcile"
)

// base carries what every reconciler-backed service needs.
type base struct {
	reconciler *reconcile.Reconciler
	dispatcher notify.Dispatcher
	logger     *slog.Logger
}

// callerID returns the authenticated user, who is also the owner for every
// owner-side operation.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// dispatch hands notices to the dispatcher. Delivery failures are logged
// and never fail the request that produced them.
func (b *base) dispatch(ctx context.Context, notices ...reconcile.Notice) {
	if len(notices) == 0 {
		return
	}
	if err := b.dispatcher.Dispatch(ctx, notices...); err != nil {
		b.logger.Warn("Notice dispatch failed", "count", len(notices), "error", err)
	}
}

func (b *base) dispatchOne(ctx context.Context, n *reconcile.Notice) {
	if n != nil {
		b.dispatch(ctx, *n)
	}
}
