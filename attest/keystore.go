package attest

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/argon2"
)

// Encrypted key file layout:
//
//	salt(16B) || nonce(12B) || AES-GCM(argon2id(passphrase, salt), nonce, key||checksum)
//
// The checksum is SHA256(key)[:4], used to distinguish a wrong passphrase
// from a corrupted file after GCM opens.
const (
	saltLen     = 16
	nonceLen    = 12
	checksumLen = 4

	argon2Time        = 3
	argon2Memory      = 64 * 1024 // 64 MB
	argon2Parallelism = 4
	argon2KeyLen      = 32
)

// GenerateKey creates a new random custodian signing key.
func GenerateKey() (*btcec.PrivateKey, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("attest: generate key: %w", err)
	}
	return priv, nil
}

// EncryptKey encrypts a signing key with Argon2id + AES-256-GCM.
func EncryptKey(priv *btcec.PrivateKey, passphrase string) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: private key", ErrNilParam)
	}
	keyBytes := priv.Serialize()

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("attest: generate salt: %w", err)
	}

	derived := argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLen)

	sum := sha256.Sum256(keyBytes)
	plaintext := make([]byte, 0, len(keyBytes)+checksumLen)
	plaintext = append(plaintext, keyBytes...)
	plaintext = append(plaintext, sum[:checksumLen]...)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("attest: AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("attest: GCM: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("attest: generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, saltLen+nonceLen+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// DecryptKey decrypts a key file payload produced by EncryptKey.
func DecryptKey(encrypted []byte, passphrase string) (*btcec.PrivateKey, error) {
	if len(encrypted) < saltLen+nonceLen+checksumLen {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidKeyFile, len(encrypted))
	}

	salt := encrypted[:saltLen]
	nonce := encrypted[saltLen : saltLen+nonceLen]
	ciphertext := encrypted[saltLen+nonceLen:]

	derived := argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLen)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyFile, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyFile, err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	if len(plaintext) < checksumLen {
		return nil, ErrInvalidKeyFile
	}

	keyBytes := plaintext[:len(plaintext)-checksumLen]
	stored := plaintext[len(plaintext)-checksumLen:]
	sum := sha256.Sum256(keyBytes)
	if subtle.ConstantTimeCompare(stored, sum[:checksumLen]) != 1 {
		return nil, ErrWrongPassphrase
	}

	priv, _ := btcec.PrivKeyFromBytes(keyBytes)
	return priv, nil
}

// SaveKeyFile encrypts the key and writes it to path with 0600 permissions,
// creating the parent directory if needed.
func SaveKeyFile(path string, priv *btcec.PrivateKey, passphrase string) error {
	data, err := EncryptKey(priv, passphrase)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("attest: create key directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("attest: write key file: %w", err)
	}
	return nil
}

// LoadKeyFile reads and decrypts a key file written by SaveKeyFile.
func LoadKeyFile(path string, passphrase string) (*btcec.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("attest: read key file: %w", err)
	}
	return DecryptKey(data, passphrase)
}
