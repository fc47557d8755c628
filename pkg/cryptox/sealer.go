package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/hkdf"
)

// sealerInfo binds derived keys to this use so the same master secret can be
// reused elsewhere without key overlap.
const sealerInfo = "mindtree/client-storage/v1"

// ErrEmptyMasterKey is returned when no key material was supplied.
var ErrEmptyMasterKey = errors.New("cryptox: empty master key")

// Sealer encrypts small values (tokens, identity blobs) for storage at rest
// using AES-256-GCM. Output format: [12-byte nonce][ciphertext][16-byte tag].
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 32-byte AES key from masterKey with HKDF-SHA256.
func NewSealer(masterKey []byte) (*Sealer, error) {
	if len(masterKey) == 0 {
		return nil, ErrEmptyMasterKey
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, []byte(sealerInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive storage key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: gcm}, nil
}

// NewSealerFromFile reads the master key material from path.
func NewSealerFromFile(path string) (*Sealer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read master key file: %w", err)
	}
	return NewSealer(data)
}

// Seal encrypts plaintext with a fresh random nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}
