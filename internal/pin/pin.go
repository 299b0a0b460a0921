// Package pin stores and verifies the emergency-override PIN as an
// argon2id hash. The lockout never sees the stored form; it only gets a
// verify callback.
package pin

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// ErrNotConfigured indicates no PIN has been set yet.
var ErrNotConfigured = errors.New("emergency pin not configured")

// Params are the argon2id cost parameters baked into a credential.
type Params struct {
	Time        uint32 `yaml:"time"`
	MemoryKiB   uint32 `yaml:"memory"`
	Parallelism uint8  `yaml:"parallelism"`
	KeyLen      uint32 `yaml:"key_len"`
}

// DefaultParams returns the cost parameters for new credentials.
func DefaultParams() Params {
	return Params{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
	}
}

// Credential is a stored PIN: salt, derived key, and the parameters used.
type Credential struct {
	Salt   []byte `yaml:"salt"`
	Hash   []byte `yaml:"hash"`
	Params Params `yaml:"params"`
}

// New derives a credential for the given PIN with a fresh random salt.
func New(pinValue string) (Credential, error) {
	if pinValue == "" {
		return Credential{}, errors.New("pin must not be empty")
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return Credential{}, fmt.Errorf("generate pin salt: %w", err)
	}
	params := DefaultParams()
	return Credential{
		Salt:   salt,
		Hash:   derive(pinValue, salt, params),
		Params: params,
	}, nil
}

// IsZero reports whether the credential is unset.
func (credential Credential) IsZero() bool {
	return len(credential.Hash) == 0
}

// Verify compares the PIN against the stored hash in constant time.
func (credential Credential) Verify(pinValue string) (bool, error) {
	if credential.IsZero() {
		return false, ErrNotConfigured
	}
	key := derive(pinValue, credential.Salt, credential.Params)
	return subtle.ConstantTimeCompare(key, credential.Hash) == 1, nil
}

func derive(pinValue string, salt []byte, params Params) []byte {
	return argon2.IDKey([]byte(pinValue), salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen)
}
