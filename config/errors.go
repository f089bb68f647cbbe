package config

import "errors"

var (
	// ErrEmptyName indicates the claim name is missing.
	ErrEmptyName = errors.New("config: claim name must not be empty")

	// ErrEmptySymbol indicates the claim symbol is missing.
	ErrEmptySymbol = errors.New("config: claim symbol must not be empty")

	// ErrInvalidSupply indicates the total supply is not a positive decimal integer.
	ErrInvalidSupply = errors.New("config: invalid total supply")

	// ErrInvalidTimeout indicates the funding timeout is zero.
	ErrInvalidTimeout = errors.New("config: funding timeout must be positive")

	// ErrInvalidAddress indicates an owner, broker, or custodian address is malformed.
	ErrInvalidAddress = errors.New("config: invalid address")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")
)
