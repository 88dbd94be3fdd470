// Package app wires the vault's dependencies for the CLI.
//
// It loads Config, opens the configured key-value backend and builds the
// key provider, stores and session manager on top of it, exposing them via
// the Wire struct for commands to use.
package app
