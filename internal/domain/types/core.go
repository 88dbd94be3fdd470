package types

// UserID identifies the account a session belongs to.
type UserID string

// String returns the string form of the user identifier.
func (u UserID) String() string { return string(u) }

// KeyID uniquely identifies one generation of the device key pair.
type KeyID string

// String returns the string form of the key identifier.
func (id KeyID) String() string { return string(id) }

// Strategy names the asymmetric primitive protecting a key pair.
type Strategy string

// String returns the string form of the strategy.
func (s Strategy) String() string { return string(s) }
