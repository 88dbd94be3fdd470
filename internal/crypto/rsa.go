package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"

	"credvault/internal/domain"
)

const rsaBits = 2048

var errBadRSAKey = errors.New("rsa: malformed key")

// rsaScheme wraps keys with RSA-OAEP/SHA-256. Public keys are PKIX DER,
// private keys PKCS#8 DER.
type rsaScheme struct{}

func (rsaScheme) Strategy() domain.Strategy { return StrategyRSA }

func (rsaScheme) Generate() ([]byte, []byte, error) {
	sk, err := rsa.GenerateKey(rand.Reader, rsaBits)
	if err != nil {
		return nil, nil, err
	}
	pub, err := x509.MarshalPKIXPublicKey(&sk.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	priv, err := x509.MarshalPKCS8PrivateKey(sk)
	if err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

func (rsaScheme) Check(pub, priv []byte) error {
	pk, err := parseRSAPublic(pub)
	if err != nil {
		return err
	}
	sk, err := parseRSAPrivate(priv)
	if err != nil {
		return err
	}
	if !sk.PublicKey.Equal(pk) {
		return errBadRSAKey
	}
	return sk.Validate()
}

func (rsaScheme) Wrap(pub, key []byte) ([]byte, error) {
	pk, err := parseRSAPublic(pub)
	if err != nil {
		return nil, err
	}
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pk, key, nil)
}

func (rsaScheme) Unwrap(priv, wrapped []byte) ([]byte, error) {
	sk, err := parseRSAPrivate(priv)
	if err != nil {
		return nil, err
	}
	return rsa.DecryptOAEP(sha256.New(), nil, sk, wrapped, nil)
}

func parseRSAPublic(b []byte) (*rsa.PublicKey, error) {
	k, err := x509.ParsePKIXPublicKey(b)
	if err != nil {
		return nil, err
	}
	pk, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, errBadRSAKey
	}
	return pk, nil
}

func parseRSAPrivate(b []byte) (*rsa.PrivateKey, error) {
	k, err := x509.ParsePKCS8PrivateKey(b)
	if err != nil {
		return nil, err
	}
	sk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, errBadRSAKey
	}
	return sk, nil
}
