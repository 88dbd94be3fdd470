package crypto

import (
	"bytes"
	"errors"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"golang.org/x/crypto/curve25519"

	"credvault/internal/domain"
	"credvault/internal/util/memzero"
)

var errBadMLKEMKey = errors.New("mlkem768-x25519: malformed key")

// mlkemScheme combines ML-KEM-768 with X25519 so the wrap holds as long as
// either primitive does. Both shared secrets feed the same KEK derivation as
// x25519Scheme.
//
// Key layout:  ML-KEM key || X25519 key.
// Wire form:   ML-KEM ciphertext || ephemeral X25519 public || sealed key.
type mlkemScheme struct{}

func (mlkemScheme) kem() kem.Scheme { return mlkem768.Scheme() }

func (mlkemScheme) Strategy() domain.Strategy { return StrategyMLKEM }

func (m mlkemScheme) Generate() ([]byte, []byte, error) {
	kpk, ksk, err := m.kem().GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	kpub, err := kpk.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	kpriv, err := ksk.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	xpriv, xpub, err := GenerateX25519()
	if err != nil {
		return nil, nil, err
	}
	return append(kpub, xpub[:]...), append(kpriv, xpriv[:]...), nil
}

func (m mlkemScheme) split(pub, priv []byte) (kpub, xpub, kpriv, xpriv []byte, err error) {
	s := m.kem()
	if pub != nil {
		if len(pub) != s.PublicKeySize()+curve25519.PointSize {
			return nil, nil, nil, nil, errBadMLKEMKey
		}
		kpub, xpub = pub[:s.PublicKeySize()], pub[s.PublicKeySize():]
	}
	if priv != nil {
		if len(priv) != s.PrivateKeySize()+curve25519.ScalarSize {
			return nil, nil, nil, nil, errBadMLKEMKey
		}
		kpriv, xpriv = priv[:s.PrivateKeySize()], priv[s.PrivateKeySize():]
	}
	return kpub, xpub, kpriv, xpriv, nil
}

func (m mlkemScheme) Check(pub, priv []byte) error {
	kpub, xpub, kpriv, xpriv, err := m.split(pub, priv)
	if err != nil {
		return err
	}
	ksk, err := m.kem().UnmarshalBinaryPrivateKey(kpriv)
	if err != nil {
		return err
	}
	derived, err := ksk.Public().MarshalBinary()
	if err != nil {
		return err
	}
	if !bytes.Equal(derived, kpub) {
		return errBadMLKEMKey
	}
	return x25519Scheme{}.Check(xpub, xpriv)
}

func (m mlkemScheme) Wrap(pub, key []byte) ([]byte, error) {
	kpub, xpub, _, _, err := m.split(pub, nil)
	if err != nil {
		return nil, err
	}
	kpk, err := m.kem().UnmarshalBinaryPublicKey(kpub)
	if err != nil {
		return nil, err
	}
	ct, kss, err := m.kem().Encapsulate(kpk)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(kss)

	ephPriv, ephPub, err := GenerateX25519()
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(ephPriv[:])
	xss, err := DH(ephPriv[:], xpub)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(xss)

	secret := append(append([]byte{}, kss...), xss...)
	defer memzero.Zero(secret)

	sealed, err := sealWithSecret(secret, append(append([]byte{}, ct...), ephPub[:]...), pub, key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(ct)+len(ephPub)+len(sealed))
	out = append(out, ct...)
	out = append(out, ephPub[:]...)
	return append(out, sealed...), nil
}

func (m mlkemScheme) Unwrap(priv, wrapped []byte) ([]byte, error) {
	_, _, kpriv, xpriv, err := m.split(nil, priv)
	if err != nil {
		return nil, err
	}
	ctSize := m.kem().CiphertextSize()
	if len(wrapped) <= ctSize+curve25519.PointSize {
		return nil, errBadMLKEMKey
	}
	ct := wrapped[:ctSize]
	ephPub := wrapped[ctSize : ctSize+curve25519.PointSize]
	sealed := wrapped[ctSize+curve25519.PointSize:]

	ksk, err := m.kem().UnmarshalBinaryPrivateKey(kpriv)
	if err != nil {
		return nil, err
	}
	kss, err := m.kem().Decapsulate(ksk, ct)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(kss)
	xss, err := DH(xpriv, ephPub)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(xss)

	kpub, err := ksk.Public().MarshalBinary()
	if err != nil {
		return nil, err
	}
	xpub, err := curve25519.X25519(xpriv, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	pub := append(kpub, xpub...)

	secret := append(append([]byte{}, kss...), xss...)
	defer memzero.Zero(secret)

	return openWithSecret(secret, wrapped[:ctSize+curve25519.PointSize], pub, sealed)
}
