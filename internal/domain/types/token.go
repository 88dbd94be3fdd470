package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserToken is the credential set issued to a user by the identity provider.
type UserToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	IDToken      string    `json:"id_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the token is structurally usable for userID.
//
// It does not verify signatures or expiry; that belongs to the resume
// delegate. An ID token, when present, must be a parseable JWT whose subject
// (if set) names userID.
func (t UserToken) Valid(userID UserID) bool {
	if t.AccessToken == "" || t.RefreshToken == "" {
		return false
	}
	if t.IDToken == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.IDToken, claims); err != nil {
		return false
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return false
	}
	return sub == "" || userID == "" || sub == userID.String()
}
