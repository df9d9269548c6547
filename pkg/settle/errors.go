package settle

import "errors"

// Failure taxonomy for the settlement layer. Every failure aborts the whole
// unit of work; recovery is the initiator's responsibility.
var (
	// Authorization.
	ErrUnauthorized         = errors.New("caller is not the owner")
	ErrUnauthorizedCallback = errors.New("callback sender is not the ledger engine")
	ErrInvalidSignature     = errors.New("authorization signature invalid")

	// State.
	ErrOperationPaused    = errors.New("operations are paused")
	ErrInvalidAction      = errors.New("unknown callback action")
	ErrUnexpectedCallback = errors.New("callback outside an active dispatch")
	ErrTokenNotConfigured = errors.New("incentive token not configured")

	// Value.
	ErrDeadlineExceeded         = errors.New("authorization deadline exceeded")
	ErrNoReferenceAssetInvolved = errors.New("no reference asset involved in swap")
	ErrZeroAddress              = errors.New("zero address not allowed")
	ErrInvalidDelegateKey       = errors.New("invalid delegate key")
	ErrHookNotAllowed           = errors.New("markets with hooks not allowed")
	ErrReentrantCall            = errors.New("reentrant call rejected")
	ErrNativeTransferFailed     = errors.New("native transfer failed")
)
