// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package ring

import (
	"fmt"

	"decred.org/ringdex/dex"
)

// Every failure is fatal to the operation that produced it. Callers match on
// the kind with errors.Is.
const (
	ErrShapeMismatch           = dex.ErrorKind("shape mismatch")
	ErrRingSizeOutOfBounds     = dex.ErrorKind("ring size out of bounds")
	ErrInvalidOrder            = dex.ErrorKind("invalid order")
	ErrInvalidSignature        = dex.ErrorKind("invalid signature")
	ErrSubringDetected         = dex.ErrorKind("sub-ring detected")
	ErrTokenNotRegistered      = dex.ErrorKind("token not registered")
	ErrRingAlreadyClaimed      = dex.ErrorKind("ring already claimed")
	ErrRateDiscountInvalid     = dex.ErrorKind("invalid rate discount")
	ErrRateDiscountUnfair      = dex.ErrorKind("unfair rate discount")
	ErrOrderFullyConsumed      = dex.ErrorKind("order fully consumed")
	ErrInsufficientFeeBalance  = dex.ErrorKind("insufficient fee balance")
	ErrUnsupportedFeeSelection = dex.ErrorKind("unsupported fee selection")
	ErrTransferFailed          = dex.ErrorKind("transfer failed")
	ErrReentrancy              = dex.ErrorKind("reentrant ring submission")
	ErrNonIncreasingCutoff     = dex.ErrorKind("non-increasing cutoff")
	ErrInvariantViolation      = dex.ErrorKind("invariant violation")
)

func newError(kind dex.ErrorKind, format string, args ...any) error {
	return dex.NewError(kind, fmt.Sprintf(format, args...))
}
