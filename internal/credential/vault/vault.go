// Package vault seals personal API keys at rest.
//
// Each identity gets its own secretbox key, derived with HKDF-SHA256 from the
// server secret and the identity, so a sealed value copied to another
// identity's row does not open.
package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	dErrors "askdata/pkg/domain-errors"
)

const (
	// MinSecretLen is the minimum server secret length in bytes.
	MinSecretLen = 32
	nonceLen     = 24
	keyLen       = 32
	infoPrefix   = "askdata credential v1:"
)

// ErrOpen is returned when a sealed value cannot be decrypted.
var ErrOpen = errors.New("sealed credential cannot be opened")

type Vault struct {
	secret []byte
}

// New builds a vault over the server secret.
func New(secret []byte) (*Vault, error) {
	if len(secret) < MinSecretLen {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("vault secret must be at least %d bytes", MinSecretLen))
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Vault{secret: s}, nil
}

// Generate creates a random base64 secret suitable for New.
func Generate() (string, error) {
	buf := make([]byte, MinSecretLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Seal encrypts plaintext for identity. The nonce is prepended.
func (v *Vault) Seal(identity string, plaintext []byte) ([]byte, error) {
	key, err := v.derive(identity)
	if err != nil {
		return nil, err
	}
	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// Open decrypts a value produced by Seal for the same identity.
func (v *Vault) Open(identity string, sealed []byte) ([]byte, error) {
	if len(sealed) < nonceLen+secretbox.Overhead {
		return nil, ErrOpen
	}
	key, err := v.derive(identity)
	if err != nil {
		return nil, err
	}
	var nonce [nonceLen]byte
	copy(nonce[:], sealed[:nonceLen])
	out, ok := secretbox.Open(nil, sealed[nonceLen:], &nonce, key)
	if !ok {
		return nil, ErrOpen
	}
	return out, nil
}

func (v *Vault) derive(identity string) (*[keyLen]byte, error) {
	if identity == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	r := hkdf.New(sha256.New, v.secret, nil, []byte(infoPrefix+identity))
	var key [keyLen]byte
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return nil, fmt.Errorf("derive credential key: %w", err)
	}
	return &key, nil
}
