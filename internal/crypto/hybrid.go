package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"credvault/internal/domain"
	"credvault/internal/util/memzero"
)

// SymmetricKeySize is the AES-256 key size used for payloads.
const SymmetricKeySize = 32

var errEmptyPlaintext = errors.New("hybrid: empty plaintext")

// WrapEncrypt seals plaintext under a freshly generated AES-256-GCM key and
// wraps that key to km's public key. The nonce is random per call and is
// carried as the ciphertext prefix.
func WrapEncrypt(plaintext []byte, km domain.KeyMaterial) (domain.EncryptedBlob, error) {
	if len(plaintext) == 0 {
		return domain.EncryptedBlob{}, errEmptyPlaintext
	}
	scheme, err := SchemeFor(km.Strategy)
	if err != nil {
		return domain.EncryptedBlob{}, err
	}

	key := make([]byte, SymmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		return domain.EncryptedBlob{}, err
	}
	defer memzero.Zero(key)

	ct, err := sealGCM(key, plaintext)
	if err != nil {
		return domain.EncryptedBlob{}, err
	}
	wrapped, err := scheme.Wrap(km.Public, key)
	if err != nil {
		return domain.EncryptedBlob{}, fmt.Errorf("wrap key: %w", err)
	}
	if len(wrapped) == 0 {
		return domain.EncryptedBlob{}, errors.New("wrap key: empty result")
	}
	return domain.EncryptedBlob{Ciphertext: ct, WrappedKey: wrapped}, nil
}

// UnwrapDecrypt reverses WrapEncrypt. Every failure, whether in the unwrap
// or the payload decrypt, is reported as domain.ErrInvalidKey.
func UnwrapDecrypt(blob domain.EncryptedBlob, km domain.KeyMaterial) ([]byte, error) {
	key, err := UnwrapKey(blob.WrappedKey, km)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	pt, err := openGCM(key, blob.Ciphertext)
	if err != nil {
		return nil, domain.ErrInvalidKey
	}
	return pt, nil
}

// UnwrapKey recovers the raw symmetric key from wrapped using km's private
// key. A failed or zero-length unwrap is domain.ErrInvalidKey.
func UnwrapKey(wrapped []byte, km domain.KeyMaterial) ([]byte, error) {
	if len(wrapped) == 0 || km.Empty() {
		return nil, domain.ErrInvalidKey
	}
	scheme, err := SchemeFor(km.Strategy)
	if err != nil {
		return nil, domain.ErrInvalidKey
	}
	key, err := scheme.Unwrap(km.Private, wrapped)
	if err != nil || len(key) == 0 {
		return nil, domain.ErrInvalidKey
	}
	return key, nil
}

func sealGCM(key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func openGCM(key, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, errors.New("hybrid: ciphertext too short")
	}
	nonce, body := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	return aead.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
