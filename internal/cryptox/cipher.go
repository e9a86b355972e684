// Package cryptox provides the symmetric cipher used to protect stored
// credentials. Values are encrypted with AES-256-GCM under a key derived from
// the server's session secret, and serialized as "ivHex:authTagHex:cipherHex"
// so previously stored secrets remain readable across restarts.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Sentinel errors returned by Decrypt.
var (
	// ErrMalformedCiphertext indicates the value is not three non-empty
	// colon-delimited hex segments.
	ErrMalformedCiphertext = errors.New("malformed ciphertext: expected iv:authTag:cipher hex format")

	// ErrAuthenticationFailed indicates the authentication tag did not verify,
	// i.e. the ciphertext was tampered with or encrypted under a different key.
	ErrAuthenticationFailed = errors.New("ciphertext authentication failed")
)

const (
	// keySalt is the fixed application salt for key derivation. Changing it
	// invalidates every stored secret.
	keySalt = "github-mcp-salt"

	ivSize  = 16
	tagSize = 16

	// scrypt cost parameters.
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// Box encrypts and decrypts secret strings. The key is derived once at
// construction; a Box is safe for concurrent use.
type Box struct {
	key []byte
}

// NewBox derives an AES-256 key from the given server secret via scrypt.
func NewBox(secret string) (*Box, error) {
	if secret == "" {
		return nil, errors.New("cryptox: secret must not be empty")
	}

	key, err := scrypt.Key([]byte(secret), []byte(keySalt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	return &Box{key: key}, nil
}

// Encrypt encrypts plaintext and returns "ivHex:authTagHex:cipherHex".
// A fresh random IV is generated per call, so encrypting the same value twice
// yields different outputs. The empty string maps to the empty string so that
// "no value" round-trips losslessly.
func (b *Box) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aead, err := b.aead()
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("rand iv: %w", err)
	}

	// Seal produces ciphertext || tag; the stored format keeps the tag as its
	// own segment.
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	body, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(body),
	), nil
}

// Decrypt reverses Encrypt. The empty string maps back to the empty string.
// Returns ErrMalformedCiphertext if the bundle cannot be split into exactly
// three non-empty hex segments, and ErrAuthenticationFailed if the tag does
// not verify.
func (b *Box) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", ErrMalformedCiphertext
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	body, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	if len(iv) != ivSize || len(tag) != tagSize {
		return "", ErrMalformedCiphertext
	}

	aead, err := b.aead()
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, iv, append(body, tag...), nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}

	return string(plaintext), nil
}

// aead builds the AES-256-GCM primitive with the 16-byte nonce size the
// stored format uses.
func (b *Box) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return aead, nil
}
