package service

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
)

var errUnauthenticated = errors.New("authenticated user required")

// toConnectError converts a ledger error to a Connect error whose code follows
// the error's reason. The reason itself travels in the Ledger-Reason header.
func toConnectError(err error) error {
	reason := ledger.Reason(err)
	connectErr := connect.NewError(codeFor(reason), err)
	connectErr.Meta().Set(middleware.ReasonHeader, reason)
	return connectErr
}

func codeFor(reason string) connect.Code {
	switch reason {
	case ledger.ReasonSplitMismatch, ledger.ReasonInvalidInput:
		return connect.CodeInvalidArgument
	case ledger.ReasonNoOutstandingBalance, ledger.ReasonWrongDirection, ledger.ReasonOverpayment:
		return connect.CodeFailedPrecondition
	case ledger.ReasonUnauthorizedVerification, ledger.ReasonForbidden:
		return connect.CodePermissionDenied
	case ledger.ReasonNotFound:
		return connect.CodeNotFound
	case ledger.ReasonLockTimeout:
		return connect.CodeUnavailable
	case ledger.ReasonCanceled:
		return connect.CodeCanceled
	default:
		return connect.CodeInternal
	}
}

func invalidArgument(format string, args ...any) error {
	return toConnectError(fmt.Errorf("%w: "+format, append([]any{ledger.ErrInvalidInput}, args...)...))
}

// requireID rejects empty or malformed record ids before they reach storage.
func requireID(field, id string, prefix models.Prefix) error {
	if id == "" {
		return invalidArgument("%s required", field)
	}
	if err := models.ValidateID(id, prefix); err != nil {
		return invalidArgument("%s: %v", field, err)
	}
	return nil
}
