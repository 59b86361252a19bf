package models

import "time"

// Session is the stateful half of the token pair. Only the SHA-256 digest
// of the opaque session secret is stored; presence of an unexpired row is
// definitionally validity (revocation is deletion, there is no flag).
type Session struct {
	SecretDigest []byte
	PrincipalID  string
	Role         Role
	IPAddress    string
	UserAgent    string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
