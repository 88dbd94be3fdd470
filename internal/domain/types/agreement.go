package types

import "time"

// AgreementEntry records that a user accepted the legal terms until ExpiresAt.
type AgreementEntry struct {
	UserID    UserID
	ExpiresAt time.Time
}
