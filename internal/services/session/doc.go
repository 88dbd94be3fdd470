// Package session orchestrates the device's stored sessions.
//
// It persists, resumes and removes sessions over a domain.LedgerStore, falls
// back once to the legacy store when the ledger is empty, and notifies
// observers of every committed change.
package session
