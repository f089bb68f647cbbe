// Package attest implements the custodian attestation scheme for claim
// ledgers.
//
// A custodian proves that the off-chain asset purchase backing a claim
// ledger was executed by signing a digest that binds the ledger symbol and
// its total supply. The signature is a 65-byte compact recoverable ECDSA
// signature on secp256k1: verification recovers the signer's public key
// from the signature alone and compares its address against the expected
// custodian identity.
package attest

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/holiman/uint256"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

const (
	// DigestSize is the length of an attestation digest in bytes.
	DigestSize = 32

	// SignatureSize is the length of a compact recoverable signature:
	// 1-byte header + 32-byte R + 32-byte S.
	SignatureSize = 65

	// AddressSize is the length of a claim address (HASH160).
	AddressSize = 20
)

// digestTag is the domain separation prefix for attestation digests.
// Changing it invalidates every previously issued attestation.
const digestTag = "claimledger/attest/v1"

// Digest computes the attestation message digest binding a ledger symbol
// and its total supply. The digest is double-SHA256 over
// tag || len(symbol) || symbol || totalSupply(32 bytes, big-endian).
func Digest(symbol string, totalSupply *uint256.Int) []byte {
	msg := make([]byte, 0, len(digestTag)+2+len(symbol)+32)
	msg = append(msg, digestTag...)
	msg = binary.BigEndian.AppendUint16(msg, uint16(len(symbol)))
	msg = append(msg, symbol...)
	supply := totalSupply.Bytes32()
	msg = append(msg, supply[:]...)
	return bsvhash.Sha256d(msg)
}

// Sign produces a compact recoverable signature over digest with the
// custodian's private key.
func Sign(priv *btcec.PrivateKey, digest []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: private key", ErrNilParam)
	}
	if len(digest) != DigestSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidDigest, len(digest))
	}
	return ecdsa.SignCompact(priv, digest, true), nil
}

// RecoverSigner recovers the address of the key that produced signature
// over digest. A malformed or non-recoverable signature yields
// ErrInvalidSignature; the caller decides whether a recovered address
// matches the expected custodian.
func RecoverSigner(digest, signature []byte) ([AddressSize]byte, error) {
	var zero [AddressSize]byte
	if len(digest) != DigestSize {
		return zero, fmt.Errorf("%w: got %d bytes", ErrInvalidDigest, len(digest))
	}
	if len(signature) != SignatureSize {
		return zero, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSignature, len(signature), SignatureSize)
	}
	pub, _, err := ecdsa.RecoverCompact(signature, digest)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return AddressFromPubKey(pub), nil
}

// AddressFromPubKey derives a claim address from a public key:
// HASH160(compressed pubkey) = RIPEMD160(SHA256(pubkey)).
func AddressFromPubKey(pub *btcec.PublicKey) [AddressSize]byte {
	var addr [AddressSize]byte
	copy(addr[:], bsvhash.Hash160(pub.SerializeCompressed()))
	return addr
}
