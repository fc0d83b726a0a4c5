package sessionstore

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrFormat  = errors.New("sessionstore: invalid sealed record format")
	ErrInvalid = errors.New("sessionstore: sealed record cannot be opened")
	ErrConfig  = errors.New("sessionstore: invalid configuration")
)

// maxSealedLen bounds what Open decodes from disk.
const maxSealedLen = 64 << 10

// KeySize is the key length of the default AEAD, XChaCha20-Poly1305.
const KeySize = chacha20poly1305.KeySize

// Sealer seals byte strings with an AEAD.
//
// Format: [keyID] "." base64url(nonce || AEAD.Seal(nil, nonce, plaintext, aad))
//
// Keys holds every key that may open a value; KeyID selects the one used to
// seal. Rotating means adding a new key, switching KeyID to it, and dropping
// the old key once nothing sealed with it is needed.
type Sealer struct {
	KeyID string
	Keys  map[string][]byte

	// NewAEAD builds the AEAD for a key. Defaults to chacha20poly1305.NewX.
	NewAEAD func(key []byte) (cipher.AEAD, error)
}

// NewSealer validates every key against newAEAD. A nil newAEAD selects
// XChaCha20-Poly1305.
func NewSealer(keyID string, keys map[string][]byte, newAEAD func(key []byte) (cipher.AEAD, error)) (*Sealer, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys", ErrConfig)
	}
	if _, ok := keys[keyID]; !ok {
		return nil, fmt.Errorf("%w: key %q not found", ErrConfig, keyID)
	}
	if newAEAD == nil {
		newAEAD = chacha20poly1305.NewX
	}
	for id, k := range keys {
		if strings.Contains(id, ".") {
			return nil, fmt.Errorf("%w: key id %q contains '.'", ErrConfig, id)
		}
		if _, err := newAEAD(k); err != nil {
			return nil, fmt.Errorf("%w: key %s: %v", ErrConfig, id, err)
		}
	}
	return &Sealer{KeyID: keyID, Keys: keys, NewAEAD: newAEAD}, nil
}

// Seal encrypts plain, binding it to aad.
func (s *Sealer) Seal(plain, aad []byte) (string, error) {
	if s == nil {
		return "", ErrConfig
	}
	key, ok := s.Keys[s.KeyID]
	if !ok {
		return "", ErrConfig
	}
	aead, err := s.NewAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plain, aad)
	return s.KeyID + "." + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal with the same aad. Values sealed
// with a key no longer in Keys fail with ErrInvalid.
func (s *Sealer) Open(value string, aad []byte) ([]byte, error) {
	if s == nil {
		return nil, ErrConfig
	}
	if len(value) == 0 || len(value) > maxSealedLen {
		return nil, ErrFormat
	}
	keyID, enc, ok := strings.Cut(value, ".")
	if !ok || keyID == "" || enc == "" {
		return nil, ErrFormat
	}
	key, ok := s.Keys[keyID]
	if !ok {
		return nil, ErrInvalid
	}
	sealed, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return nil, ErrFormat
	}

	aead, err := s.NewAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrFormat
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrInvalid
	}
	return plain, nil
}

// KeyFromPassphrase derives a KeySize key with argon2id. The salt should be
// random and stored next to the sealed records; it need not be secret.
func KeyFromPassphrase(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, KeySize)
}
