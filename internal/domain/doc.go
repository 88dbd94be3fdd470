// Package domain defines core data models, errors and interfaces shared
// across the vault. It contains plain types (persisted state) and contracts
// (interfaces) only.
package domain
