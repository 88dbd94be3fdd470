// Package commands defines the credvault CLI and wires dependencies for subcommands.
//
// Commands
//
//   - persist      Store a session for a user
//   - list         Print stored sessions, most recent first
//   - resume       Hand a stored session to the resume step
//   - remove       Delete one user's session, or the least recently active one
//   - remove-all   Delete every stored session
//   - rotate       Replace the device key pair and re-encrypt the ledger
//   - status       Print key pair and ledger state
//   - agree        Record or check acceptance of the legal terms
//
// # Implementation
//
// The root command loads the config, applies flag overrides and opens the
// vault (backend, key provider, stores, session manager) before any
// subcommand runs. The vault is closed again after the subcommand returns.
package commands
