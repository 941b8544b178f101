package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

func newTestCipher(password string) (cipher.Block, error) {
	return aes.NewCipher(deriveKey(password))
}

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
