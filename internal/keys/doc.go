// Package keys owns the device key pair: lazy generation, persistence,
// rotation and the expiry policy.
//
// The asymmetric primitive is chosen once, when the Provider is built, from
// the host's capabilities (Detect). Every strategy behaves the same from the
// outside; they differ in strength and in whether the pair carries an expiry.
//
// Persisted entries:
//   - key_pair: JSON record with id, strategy and both key halves
//   - key_pair_valid_until: expiry in epoch milliseconds, or -1 for never
package keys
