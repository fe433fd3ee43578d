// Package notify hands reconciliation notices to a delivery channel.
// Delivery itself (email, push) lives outside this repository; the default
// dispatcher only logs.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmynk/subsplit/internal/reconcile"
)

// Dispatcher delivers notices.
type Dispatcher interface {
	Dispatch(ctx context.Context, notices ...reconcile.Notice) error
}

// LogDispatcher writes every notice to a structured logger.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher returns a LogDispatcher. A nil logger uses slog.Default().
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch logs each notice at info level.
func (d *LogDispatcher) Dispatch(ctx context.Context, notices ...reconcile.Notice) error {
	for _, n := range notices {
		d.logger.InfoContext(ctx, "Notice",
			"kind", n.Kind,
			"recipient_kind", n.Recipient.Kind,
			"recipient_id", n.Recipient.ID,
			"payment_id", n.PaymentID,
			"service", n.ServiceName,
			"member", n.MemberName,
			"amount", n.Amount.StringFixed(2),
			"remaining", n.Remaining.StringFixed(2),
		)
	}
	return nil
}

// Recorder keeps notices in memory. Tests use it to assert what would have
// been sent.
type Recorder struct {
	mu      sync.Mutex
	notices []reconcile.Notice
}

// Dispatch appends the notices.
func (r *Recorder) Dispatch(_ context.Context, notices ...reconcile.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notices...)
	return nil
}

// Notices returns a copy of everything dispatched so far.
func (r *Recorder) Notices() []reconcile.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reconcile.Notice(nil), r.notices...)
}

// Reset drops the recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}
