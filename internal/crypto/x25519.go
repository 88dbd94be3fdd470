package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"credvault/internal/domain"
	"credvault/internal/util/memzero"
)

const x25519WrapInfo = "credvault/x25519-wrap/v1"

var errBadX25519Key = errors.New("x25519: malformed key")

// GenerateX25519 returns a fresh Curve25519 key pair.
// The private key is clamped per RFC 7748.
func GenerateX25519() (priv, pub [32]byte, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return
	}
	clamp(&priv)
	pb, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return
	}
	copy(pub[:], pb)
	return
}

// DH computes X25519 Diffie-Hellman.
func DH(priv, pub []byte) ([]byte, error) {
	return curve25519.X25519(priv, pub)
}

func clamp(k *[32]byte) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}

// x25519Scheme is an ECIES construction: an ephemeral X25519 share, HKDF over
// the shared secret and both public keys, and ChaCha20-Poly1305.
//
// Wire form: ephemeral public (32) || sealed key.
type x25519Scheme struct{}

func (x25519Scheme) Strategy() domain.Strategy { return StrategyX25519 }

func (x25519Scheme) Generate() ([]byte, []byte, error) {
	priv, pub, err := GenerateX25519()
	if err != nil {
		return nil, nil, err
	}
	return pub[:], priv[:], nil
}

func (x25519Scheme) Check(pub, priv []byte) error {
	if len(pub) != curve25519.PointSize || len(priv) != curve25519.ScalarSize {
		return errBadX25519Key
	}
	derived, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return err
	}
	if !bytes.Equal(derived, pub) {
		return errBadX25519Key
	}
	return nil
}

func (x25519Scheme) Wrap(pub, key []byte) ([]byte, error) {
	if len(pub) != curve25519.PointSize {
		return nil, errBadX25519Key
	}
	ephPriv, ephPub, err := GenerateX25519()
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(ephPriv[:])

	shared, err := DH(ephPriv[:], pub)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(shared)

	sealed, err := sealWithSecret(shared, ephPub[:], pub, key)
	if err != nil {
		return nil, err
	}
	return append(ephPub[:], sealed...), nil
}

func (x25519Scheme) Unwrap(priv, wrapped []byte) ([]byte, error) {
	if len(priv) != curve25519.ScalarSize || len(wrapped) <= curve25519.PointSize {
		return nil, errBadX25519Key
	}
	ephPub := wrapped[:curve25519.PointSize]
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	shared, err := DH(priv, ephPub)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(shared)

	return openWithSecret(shared, ephPub, pub, wrapped[curve25519.PointSize:])
}

// wrapKEK derives a one-time ChaCha20-Poly1305 key from secret, bound to the
// transcript (ephemeral share and recipient public key).
func wrapKEK(secret, ephPub, recipient []byte) ([]byte, error) {
	salt := make([]byte, 0, len(ephPub)+len(recipient))
	salt = append(salt, ephPub...)
	salt = append(salt, recipient...)

	kek := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, secret, salt, []byte(x25519WrapInfo))
	if _, err := io.ReadFull(r, kek); err != nil {
		return nil, err
	}
	return kek, nil
}

func sealWithSecret(secret, ephPub, recipient, key []byte) ([]byte, error) {
	kek, err := wrapKEK(secret, ephPub, recipient)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(kek)

	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; the KEK is single-use
	return aead.Seal(nil, nonce[:], key, nil), nil
}

func openWithSecret(secret, ephPub, recipient, sealed []byte) ([]byte, error) {
	kek, err := wrapKEK(secret, ephPub, recipient)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(kek)

	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	return aead.Open(nil, nonce[:], sealed, nil)
}
