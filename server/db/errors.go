package db

import "errors"

// ArchiveError is the error type used by archivist for certain recognized
// errors. Not all returned errors will be of this type.
type ArchiveError struct {
	Code   uint16
	Detail string
}

// The possible Code values in an ArchiveError.
const (
	ErrGeneralFailure uint16 = iota
	ErrNonIncreasingCutoff
	ErrRingIndexMismatch
	ErrOverflow
)

func (ae ArchiveError) Error() string {
	desc := "unrecognized error"
	switch ae.Code {
	case ErrGeneralFailure:
		desc = "general failure"
	case ErrNonIncreasingCutoff:
		desc = "non-increasing cutoff"
	case ErrRingIndexMismatch:
		desc = "ring index mismatch"
	case ErrOverflow:
		desc = "amount overflow"
	}

	if ae.Detail == "" {
		return desc
	}
	return desc + ": " + ae.Detail
}

// SameErrorTypes checks for error equality or ArchiveError.Code equality if
// both errors are of type ArchiveError.
func SameErrorTypes(errA, errB error) bool {
	if errors.Is(errA, errB) {
		return true
	}
	var arA ArchiveError
	if errors.As(errA, &arA) {
		var arB ArchiveError
		if errors.As(errB, &arB) && arA.Code == arB.Code {
			return true
		}
	}
	return false
}

func isCode(err error, code uint16) bool {
	var errA ArchiveError
	if errors.As(err, &errA) {
		return errA.Code == code
	}
	return false
}

// IsErrNonIncreasingCutoff returns true if the error is of type ArchiveError
// and has code ErrNonIncreasingCutoff.
func IsErrNonIncreasingCutoff(err error) bool {
	return isCode(err, ErrNonIncreasingCutoff)
}

// IsErrRingIndexMismatch returns true if the error is of type ArchiveError and
// has code ErrRingIndexMismatch.
func IsErrRingIndexMismatch(err error) bool {
	return isCode(err, ErrRingIndexMismatch)
}

// IsErrOverflow returns true if the error is of type ArchiveError and has code
// ErrOverflow.
func IsErrOverflow(err error) bool {
	return isCode(err, ErrOverflow)
}
