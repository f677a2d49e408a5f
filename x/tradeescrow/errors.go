package tradeescrow

import (
	"github.com/iov-one/weave/errors"
)

// ABCI Response Codes
// tradeescrow takes 1300-1320
var (
	ErrTooEarlyForRefund         = errors.Register(1300, "too early for refund")
	ErrDeadlineNotApproved       = errors.Register(1301, "deadline not approved")
	ErrDeadlineTooShort          = errors.Register(1302, "deadline too short")
	ErrDeadlineTooLong           = errors.Register(1303, "deadline too long")
	ErrDeadlinePassed            = errors.Register(1304, "deadline passed")
	ErrExtensionRequestNotFound  = errors.Register(1305, "extension request not found")
	ErrExtensionAlreadyRequested = errors.Register(1306, "extension already requested")
)

// Order state and authorization failures are reported using weave root
// errors so that clients can handle them like any other extension.
var (
	ErrInvalidState = errors.ErrState
	ErrUnauthorized = errors.ErrUnauthorized
)
