package ledger

import "errors"

var (
	ErrPoolNotFound          = errors.New("pool not found")
	ErrPoolExists            = errors.New("pool already initialized")
	ErrInvalidPrice          = errors.New("initial price must be positive")
	ErrInvalidAmount         = errors.New("amount must be nonzero")
	ErrInvalidTickRange      = errors.New("tick range inverted")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrSlippage              = errors.New("output below minimum")
	ErrAlreadyUnlocked       = errors.New("unlock already in flight")
	ErrNotUnlocked           = errors.New("operation requires an active unlock")
	ErrNoCallback            = errors.New("no unlock callback registered")
)
