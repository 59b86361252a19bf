package models

import "time"

type Role string

const (
	RoleAdmin        Role = "admin"
	RolePhotographer Role = "photographer"
	RoleClient       Role = "client"
	RoleGuest        Role = "guest"
)

// Principal is an authenticated actor. The email address is sealed at rest;
// EmailDigest exists only so lookups don't need to decrypt the whole table.
type Principal struct {
	ID                   string
	Role                 Role
	EmailCiphertext      []byte
	EmailDigest          []byte
	DisplayName          string
	CredentialDigest     []byte
	Active               bool
	MustRotateCredential bool
	ParentID             *string
	ExpiresAt            *time.Time // guests only
	LastLoginAt          *time.Time
	Deletion             Deletion
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Expired reports whether a guest principal is past its usability window.
// Always false for non-guest roles.
func (p Principal) Expired(now time.Time) bool {
	return p.Role == RoleGuest && p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}
