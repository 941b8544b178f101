package wallet

import (
	"bytes"
	"crypto/aes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyDerivationIterations = 1
	privateKeyLength        = 32
)

var (
	// ErrInvalidPadding is returned when the decrypted data is not PKCS#7 padded,
	// which is what a wrong password almost always yields
	ErrInvalidPadding = errors.New("invalid padding")

	// ErrInvalidKeyLength is returned when the plaintext is not a 32 byte private key
	ErrInvalidKeyLength = errors.New("decrypted key has invalid length")
)

// deriveKey derives the AES-256 key: PBKDF2-HMAC-SHA1 of the password, one
// iteration, salted with the SHA-256 of the password
func deriveKey(password string) []byte {
	salt := sha256.Sum256([]byte(password))
	return pbkdf2.Key([]byte(password), salt[:], keyDerivationIterations, 32, sha1.New)
}

// Decrypt turns a base64 encrypted private key into its 0x prefixed hex form
func Decrypt(encrypted, password string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encrypted))
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted key: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(password))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("encrypted key length %d is not a multiple of the block size", len(ciphertext))
	}

	// ECB: every block is decrypted on its own
	plaintext := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += aes.BlockSize {
		block.Decrypt(plaintext[i:i+aes.BlockSize], ciphertext[i:i+aes.BlockSize])
	}

	plaintext, err = unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}

	// keys stored with a leading marker byte
	if len(plaintext) == privateKeyLength+1 {
		plaintext = plaintext[1:]
	}
	if len(plaintext) != privateKeyLength {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidKeyLength, len(plaintext))
	}

	return "0x" + hex.EncodeToString(plaintext), nil
}

// Encrypt is the inverse of Decrypt: it takes a hex private key, with or without 0x,
// and returns its base64 encrypted form
func Encrypt(privateKey, password string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(privateKey), "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid private key: %w", err)
	}
	if len(raw) != privateKeyLength {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidKeyLength, len(raw))
	}

	block, err := aes.NewCipher(deriveKey(password))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := pad(raw, aes.BlockSize)
	ciphertext := make([]byte, len(plaintext))
	for i := 0; i < len(plaintext); i += aes.BlockSize {
		block.Encrypt(ciphertext[i:i+aes.BlockSize], plaintext[i:i+aes.BlockSize])
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
