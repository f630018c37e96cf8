package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Ledger / access errors
	ErrAlreadyGranted     = errors.New("user already has valid access to this asset")
	ErrAlreadyInitiated   = errors.New("a pending purchase already exists for this asset")
	ErrInvalidState       = errors.New("purchase is not in a state that allows this transition")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrDuplicatePayment   = errors.New("payment reference already used by another purchase")
	ErrNotCompleted       = errors.New("purchase is not completed")
	ErrInvalidAmount      = errors.New("refund amount is invalid")
	ErrAccessDenied       = errors.New("access denied")

	// External dependency errors
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// Storage errors
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction execution context")
)

// ConflictError wraps a conflict sentinel together with the identity of the
// record that caused the conflict, so callers can poll or recover instead of
// retrying blindly.
type ConflictError struct {
	Err        error
	PurchaseID string
}

func (e *ConflictError) Error() string { return e.Err.Error() + ": " + e.PurchaseID }
func (e *ConflictError) Unwrap() error { return e.Err }

// Conflict builds a ConflictError carrying the existing record's id.
func Conflict(sentinel error, purchaseID string) error {
	return &ConflictError{Err: sentinel, PurchaseID: purchaseID}
}

// AccessDeniedError is the expected, non-exceptional outcome of an access
// check, carrying the reason so the caller can render it.
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string { return "access denied: " + e.Reason }
func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }
