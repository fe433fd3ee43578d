package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/subsplit/internal/ledger"
)

// connectCode maps a domain error kind onto a Connect status code.
func connectCode(kind ledger.Kind) connect.Code {
	switch kind {
	case ledger.KindNotFound:
		return connect.CodeNotFound
	case ledger.KindInvalidState:
		return connect.CodeFailedPrecondition
	case ledger.KindInvalidAmount, ledger.KindInvalidInput:
		return connect.CodeInvalidArgument
	case ledger.KindConflict:
		return connect.CodeAborted
	default:
		return connect.CodeInternal
	}
}

// toConnectError converts an error from the reconciler. Domain errors keep
// their message; anything else is logged and hidden behind CodeInternal.
func toConnectError(logger *slog.Logger, procedure string, err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	if kind, ok := ledger.KindOf(err); ok {
		logger.Warn("Request rejected", "procedure", procedure, "kind", kind, "error", err)
		return connect.NewError(connectCode(kind), err)
	}
	logger.Error("Request failed", "procedure", procedure, "error", err)
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}

func invalidArgument(err error) error {
	return connect.NewError(connect.CodeInvalidArgument, err)
}
