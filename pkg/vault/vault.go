package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Credentials at rest are AES-256-GCM sealed and stored as
// base64(iv):base64(authTag):base64(ciphertext). Decryption fails closed on
// a malformed triplet or a tag mismatch.

const (
	ivLength   = 16
	saltLength = 64
	kdfRounds  = 100_000
)

var (
	ErrNoKey           = errors.New("vault: encryption key not configured")
	ErrMalformedSecret = errors.New("vault: malformed encrypted value")

	encryptionKey []byte
)

// SetKey configures the vault key. A 64-character hex string is used
// directly as the 32-byte key; any other non-empty string is stretched with
// PBKDF2-SHA256.
func SetKey(key string) error {
	if key == "" {
		return ErrNoKey
	}

	if len(key) == 64 {
		if raw, err := hex.DecodeString(key); err == nil {
			encryptionKey = raw
			return nil
		}
	}

	salt := key
	if len(salt) > saltLength {
		salt = salt[:saltLength]
	}
	encryptionKey = pbkdf2.Key([]byte(key), []byte(salt), kdfRounds, 32, sha256.New)
	return nil
}

// Encrypt seals a plaintext string. Empty input stays empty.
func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	if len(encryptionKey) == 0 {
		return "", ErrNoKey
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	// gcm.Seal appends the auth tag to the ciphertext; the wire format keeps
	// them in separate segments.
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return fmt.Sprintf("%s:%s:%s",
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	), nil
}

// Decrypt opens a sealed value. Empty input stays empty; anything that is
// not a valid iv:tag:ciphertext triplet sealed under the configured key is
// an error, never silently returned as-is.
func Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}
	if len(encryptionKey) == 0 {
		return "", ErrNoKey
	}

	parts := strings.Split(encrypted, ":")
	if len(parts) != 3 {
		return "", ErrMalformedSecret
	}

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(iv) != ivLength {
		return "", ErrMalformedSecret
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformedSecret
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformedSecret
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return "", err
	}
	if len(tag) != gcm.Overhead() {
		return "", ErrMalformedSecret
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("vault: decryption failed: %w", err)
	}
	return string(plaintext), nil
}
