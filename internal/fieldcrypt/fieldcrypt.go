// Package fieldcrypt encrypts individual text columns with AES-256-GCM.
//
// Stored values have the form base64([12-byte nonce][ciphertext]). The key is
// derived once from a passphrase and a persisted salt using Argon2id.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize  = 16
	KeySize   = 32
	nonceSize = 12
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

// ErrMalformed is returned when a stored value cannot be decoded.
var ErrMalformed = errors.New("fieldcrypt: malformed ciphertext")

// GenerateSalt returns SaltSize cryptographically random bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a 32-byte AES-256 key from a passphrase and salt using Argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMem, argonPar, KeySize)
}

// Cipher encrypts and decrypts string fields. It is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New returns a Cipher for a raw 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("fieldcrypt: key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Cipher{aead: gcm}, nil
}

// FromPassphrase derives the key from passphrase and salt and returns a Cipher.
func FromPassphrase(passphrase string, salt []byte) (*Cipher, error) {
	if passphrase == "" {
		return nil, errors.New("fieldcrypt: empty passphrase")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("fieldcrypt: salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	return New(DeriveKey(passphrase, salt))
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, nonceSize+len(plaintext)+c.aead.Overhead())
	out = append(out, nonce...)
	out = c.aead.Seal(out, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Tampered or foreign values fail authentication.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformed
	}
	if len(data) < nonceSize+c.aead.Overhead() {
		return "", ErrMalformed
	}

	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}
