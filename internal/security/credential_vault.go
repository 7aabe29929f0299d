package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidKeyLength  = errors.New("encryption key must be 32 bytes for AES-256")
)

// CredentialVault encrypts and decrypts catalog credentials with AES-256-GCM.
//
// The nonce is derived from the plaintext (HMAC-SHA256 under the master key), so the same
// plaintext always produces the same ciphertext. Reconciliation relies on this to compare
// a re-encrypted source password with the stored target password.
type CredentialVault struct {
	masterKey []byte
	gcm       cipher.AEAD
	failures  atomic.Int64
}

// NewCredentialVault creates a new credential vault with the given master key.
// The master key must be 32 bytes.
func NewCredentialVault(masterKey []byte) (*CredentialVault, error) {
	if len(masterKey) != 32 {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	key := make([]byte, len(masterKey))
	copy(key, masterKey)
	return &CredentialVault{masterKey: key, gcm: gcm}, nil
}

// EncryptCredentials encrypts plaintext and returns base64(nonce || ciphertext).
func (cv *CredentialVault) EncryptCredentials(plaintext []byte) (string, error) {
	mac := hmac.New(sha256.New, cv.masterKey)
	mac.Write(plaintext)
	nonce := mac.Sum(nil)[:cv.gcm.NonceSize()]

	ciphertext := cv.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptCredentials decrypts the base64-encoded ciphertext
func (cv *CredentialVault) DecryptCredentials(ciphertextB64 string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := cv.gcm.NonceSize()
	if len(ciphertext) < nonceSize+cv.gcm.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := cv.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// Encrypt encrypts a nullable column value. Blank input yields null. When encryption
// fails the input is returned unchanged and the failure is counted.
func (cv *CredentialVault) Encrypt(v sql.NullString) sql.NullString {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return sql.NullString{}
	}
	out, err := cv.EncryptCredentials([]byte(v.String))
	if err != nil {
		cv.failures.Add(1)
		return v
	}
	return sql.NullString{String: out, Valid: true}
}

// Decrypt decrypts a nullable column value. Blank input yields null. Values that are not
// valid ciphertext under this key are returned unchanged and counted.
func (cv *CredentialVault) Decrypt(v sql.NullString) sql.NullString {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return sql.NullString{}
	}
	out, err := cv.DecryptCredentials(v.String)
	if err != nil {
		cv.failures.Add(1)
		return v
	}
	return sql.NullString{String: string(out), Valid: true}
}

// Failures returns how many Encrypt/Decrypt calls fell back to their input.
func (cv *CredentialVault) Failures() int64 {
	return cv.failures.Load()
}
