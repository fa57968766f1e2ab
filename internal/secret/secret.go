// Package secret stores credentials encrypted at rest.
//
// Values are AES-256-CBC encrypted with PKCS#7 padding and stored as
// base64(iv || ciphertext). The key is the SHA-256 digest of a salt.
package secret

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// DefaultSalt is used when no salt is configured.
const DefaultSalt = "autoblog-ai-default-key"

// ErrMalformed is returned for values that cannot be decrypted with the salt.
var ErrMalformed = errors.New("malformed encrypted value")

func deriveKey(salt string) []byte {
	if salt == "" {
		salt = DefaultSalt
	}
	sum := sha256.Sum256([]byte(salt))
	return sum[:]
}

// Encrypt returns the stored form of plaintext. An empty plaintext encrypts to "".
func Encrypt(plaintext, salt string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	block, err := aes.NewCipher(deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	iv := out[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. An empty value decrypts to "".
func Decrypt(stored, salt string) (string, error) {
	if stored == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) <= aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", ErrMalformed
	}

	block, err := aes.NewCipher(deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	iv, ct := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	plain, err = unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrMalformed
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, ErrMalformed
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrMalformed
		}
	}
	return b[:len(b)-n], nil
}

// Store holds one encrypted credential and decrypts it on demand.
type Store struct {
	salt      string
	encrypted string
}

func NewStore(salt, encrypted string) *Store {
	return &Store{salt: salt, encrypted: encrypted}
}

// Get returns the decrypted credential, or "" when none is stored.
func (s *Store) Get(_ context.Context) (string, error) {
	return Decrypt(s.encrypted, s.salt)
}
