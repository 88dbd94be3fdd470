package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"credvault/internal/domain"
	"credvault/internal/util/memzero"
)

// The deprecated storage format encrypted base64(payload) with AES-CBC under a
// constant all-zero IV, then base64-encoded the ciphertext for storage. It is
// read-only here; SealLegacy exists to build fixtures.

var errLegacyPadding = errors.New("legacy: bad padding")

// OpenLegacy decodes a legacy stored value: it unwraps wrappedKey with km,
// decrypts the CBC payload and strips the inner base64 layer.
func OpenLegacy(stored string, wrappedKey []byte, km domain.KeyMaterial) ([]byte, error) {
	ct, err := FromB64(stored)
	if err != nil {
		return nil, fmt.Errorf("legacy outer encoding: %w", err)
	}
	key, err := UnwrapKey(wrappedKey, km)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, domain.ErrInvalidKey
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, domain.ErrInvalidKey
	}
	iv := make([]byte, aes.BlockSize)
	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ct)

	inner, err := pkcs7Unpad(padded)
	if err != nil {
		return nil, domain.ErrInvalidKey
	}
	plain, err := base64.StdEncoding.DecodeString(string(inner))
	if err != nil {
		return nil, fmt.Errorf("legacy inner encoding: %w", err)
	}
	return plain, nil
}

// SealLegacy produces a value in the legacy format: the stored string and
// the wrapped AES-128 key.
func SealLegacy(plaintext []byte, km domain.KeyMaterial) (string, []byte, error) {
	scheme, err := SchemeFor(km.Strategy)
	if err != nil {
		return "", nil, err
	}
	key := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		return "", nil, err
	}
	defer memzero.Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", nil, err
	}
	inner := []byte(base64.StdEncoding.EncodeToString(plaintext))
	padded := pkcs7Pad(inner, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(ct, padded)

	wrapped, err := scheme.Wrap(km.Public, key)
	if err != nil {
		return "", nil, err
	}
	return B64(ct), wrapped, nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errLegacyPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errLegacyPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errLegacyPadding
		}
	}
	return b[:len(b)-n], nil
}
