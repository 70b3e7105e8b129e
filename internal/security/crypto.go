// Package security seals DSN secrets (passwords, API keys) before they are
// written to a catalogue backend.
//
// A sealed value is a printable string:
//
//	enc:v1:<base64(salt | nonce | ciphertext)>
//
// The key is derived from a master passphrase with PBKDF2-SHA256 and the
// payload encrypted with AES-256-GCM.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/koustreak/dsneditor/internal/errs"
)

const (
	// SaltSize is the size of the salt in bytes.
	SaltSize = 16
	// NonceSize is the size of the GCM nonce in bytes.
	NonceSize = 12
	// KeySizeAES is the AES-256 key size in bytes.
	KeySizeAES = 32
	// PBKDF2Iterations is the number of PBKDF2 iterations.
	PBKDF2Iterations = 100000

	// SealedPrefix marks a sealed value.
	SealedPrefix = "enc:v1:"
)

// DeriveKey derives an AES-256 key from a passphrase and salt using PBKDF2.
func DeriveKey(passphrase, salt []byte) []byte {
	return pbkdf2.Key(passphrase, salt, PBKDF2Iterations, KeySizeAES, sha256.New)
}

// Sealer seals and opens secrets with one master passphrase.
type Sealer struct {
	passphrase []byte
}

// NewSealer returns a Sealer for passphrase. An empty passphrase yields a
// Sealer that stores values in the clear, which is what plain odbc.ini files
// expect.
func NewSealer(passphrase string) *Sealer {
	return &Sealer{passphrase: []byte(passphrase)}
}

// Enabled reports whether values are actually encrypted.
func (s *Sealer) Enabled() bool {
	return s != nil && len(s.passphrase) > 0
}

// IsSealed reports whether v carries the sealed prefix.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, SealedPrefix)
}

// Seal encrypts plaintext. Empty values and disabled sealers pass through.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" || !s.Enabled() {
		return plaintext, nil
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", errs.Wrap(errs.ErrKindUnknown, "generate salt", err)
	}
	gcm, err := newGCM(DeriveKey(s.passphrase, salt))
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", errs.Wrap(errs.ErrKindUnknown, "generate nonce", err)
	}

	buf := make([]byte, 0, SaltSize+NonceSize+len(plaintext)+gcm.Overhead())
	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	buf = gcm.Seal(buf, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(buf), nil
}

// Open decrypts a value produced by Seal. Values without the sealed prefix
// are returned unchanged.
func (s *Sealer) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if !s.Enabled() {
		return "", errs.New(errs.ErrKindPermissionDenied, "a master key is required to read stored secrets")
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", errs.Wrap(errs.ErrKindParseFailed, "sealed value is not valid base64", err)
	}
	if len(raw) < SaltSize+NonceSize {
		return "", errs.New(errs.ErrKindParseFailed, "sealed value is truncated")
	}

	salt, nonce, ciphertext := raw[:SaltSize], raw[SaltSize:SaltSize+NonceSize], raw[SaltSize+NonceSize:]
	gcm, err := newGCM(DeriveKey(s.passphrase, salt))
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindPermissionDenied, "wrong master key or corrupted secret", err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "create cipher", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "create GCM", err)
	}
	return gcm, nil
}
