package crypto

import (
	"fmt"

	"credvault/internal/domain"
)

// Key strategies, strongest first.
const (
	StrategyMLKEM  domain.Strategy = "mlkem768-x25519"
	StrategyX25519 domain.Strategy = "x25519"
	StrategyRSA    domain.Strategy = "rsa-oaep"
)

// Scheme is one asymmetric key-wrapping primitive.
type Scheme interface {
	Strategy() domain.Strategy
	// Generate returns a fresh serialized key pair.
	Generate() (pub, priv []byte, err error)
	// Check verifies that priv deserializes and matches pub.
	Check(pub, priv []byte) error
	// Wrap encrypts a symmetric key to pub.
	Wrap(pub, key []byte) ([]byte, error)
	// Unwrap recovers a symmetric key with priv.
	Unwrap(priv, wrapped []byte) ([]byte, error)
}

var schemes = map[domain.Strategy]Scheme{
	StrategyMLKEM:  mlkemScheme{},
	StrategyX25519: x25519Scheme{},
	StrategyRSA:    rsaScheme{},
}

// SchemeFor returns the scheme implementing strategy.
func SchemeFor(strategy domain.Strategy) (Scheme, error) {
	s, ok := schemes[strategy]
	if !ok {
		return nil, fmt.Errorf("unknown key strategy %q", strategy)
	}
	return s, nil
}

// Strategies lists the supported strategies, strongest first.
func Strategies() []domain.Strategy {
	return []domain.Strategy{StrategyMLKEM, StrategyX25519, StrategyRSA}
}
