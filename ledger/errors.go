package ledger

import "errors"

var (
	// ErrWrongStage indicates the operation's stage precondition was violated.
	ErrWrongStage = errors.New("ledger: wrong stage")

	// ErrInsufficientBalance indicates the caller's balance cannot cover the amount.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrInsufficientUnliquidated indicates the paid value exceeds the account's pending exit amount.
	ErrInsufficientUnliquidated = errors.New("ledger: insufficient unliquidated amount")

	// ErrUnauthorized indicates the caller identity is not allowed to perform the operation.
	ErrUnauthorized = errors.New("ledger: unauthorized caller")

	// ErrNothingToClaim indicates the caller has no unclaimed payout.
	ErrNothingToClaim = errors.New("ledger: nothing to claim")

	// ErrAmountOverflow indicates a checked 256-bit arithmetic step would overflow.
	ErrAmountOverflow = errors.New("ledger: amount overflow")

	// ErrValueMismatch indicates the paid-in value does not match the requested amount.
	ErrValueMismatch = errors.New("ledger: paid value does not match amount")

	// ErrZeroValue indicates an operation that requires a positive value received zero.
	ErrZeroValue = errors.New("ledger: zero value")

	// ErrNoSupply indicates the total supply is zero.
	ErrNoSupply = errors.New("ledger: total supply is zero")

	// ErrTransferFailed indicates the environment's value transfer primitive failed.
	// The failing operation's own state writes are rolled back before it returns.
	ErrTransferFailed = errors.New("ledger: value transfer failed")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("ledger: nil parameter")

	// ErrInvalidAddress indicates an address string could not be parsed.
	ErrInvalidAddress = errors.New("ledger: invalid address")

	// ErrInvalidSnapshot indicates a serialized ledger snapshot is malformed.
	ErrInvalidSnapshot = errors.New("ledger: invalid snapshot")
)
