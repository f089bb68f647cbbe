package store

import "errors"

var (
	// ErrStateNotFound indicates no ledger snapshot has been saved yet.
	ErrStateNotFound = errors.New("store: ledger state not found")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("store: nil parameter")

	// ErrUnknownEvent indicates a journal record with an unrecognized kind.
	ErrUnknownEvent = errors.New("store: unknown event kind")
)
