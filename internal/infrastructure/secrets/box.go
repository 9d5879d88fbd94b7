package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// BoxCipher encrypts settings secrets with nacl/secretbox. Stored form
// is base64(nonce || ciphertext).
type BoxCipher struct {
	key [32]byte
}

// NewBoxCipher accepts a 32-byte key encoded as hex or base64.
func NewBoxCipher(encodedKey string) (*BoxCipher, error) {
	raw, err := decodeKey(encodedKey)
	if err != nil {
		return nil, err
	}

	c := &BoxCipher{}
	copy(c.key[:], raw)
	return c, nil
}

func decodeKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.New("secrets: empty key")
	}
	if raw, err := hex.DecodeString(encoded); err == nil && len(raw) == 32 {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(raw) == 32 {
		return raw, nil
	}
	return nil, errors.New("secrets: key must decode to 32 bytes (hex or base64)")
}

func (c *BoxCipher) Encrypt(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *BoxCipher) Decrypt(stored string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("secrets: decode: %w", err)
	}
	if len(raw) <= nonceSize {
		return "", errors.New("secrets: ciphertext too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", errors.New("secrets: decryption failed")
	}
	return string(plain), nil
}
