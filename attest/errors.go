package attest

import "errors"

var (
	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("attest: nil parameter")

	// ErrInvalidSignature indicates the signature is malformed or not recoverable.
	ErrInvalidSignature = errors.New("attest: invalid signature")

	// ErrInvalidDigest indicates the message digest has the wrong length.
	ErrInvalidDigest = errors.New("attest: digest must be 32 bytes")

	// ErrInvalidAddress indicates a claim address could not be parsed.
	ErrInvalidAddress = errors.New("attest: invalid address")

	// ErrInvalidKeyFile indicates the encrypted key file is malformed.
	ErrInvalidKeyFile = errors.New("attest: invalid key file")

	// ErrWrongPassphrase indicates the key file checksum did not match after decryption.
	ErrWrongPassphrase = errors.New("attest: wrong passphrase")
)
