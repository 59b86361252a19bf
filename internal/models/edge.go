package models

import "time"

type EdgeKind string

const (
	EdgeCollectionAccess EdgeKind = "collection_access" // collection -> client
	EdgePhotoAccess      EdgeKind = "photo_access"      // photo -> client or guest
	EdgeCollectionPhoto  EdgeKind = "collection_photo"  // collection -> photo
	EdgeClientGuests     EdgeKind = "client_guests"     // client -> guest
)

// Edge is a directed, typed relationship between two vertices. At most one
// edge exists per (kind, from, to); re-granting refreshes the existing row.
type Edge struct {
	ID         string
	Kind       EdgeKind
	FromID     string
	ToID       string
	Active     bool
	GrantedAt  time.Time
	ExpiresAt  *time.Time
	OrderIndex int // collection_photo ordering within the collection
}

// Current applies the currency invariant: an edge confers access only while
// active and unexpired. Stale rows stay in the store until the sweep
// removes them, so every read path goes through this check.
func (e Edge) Current(now time.Time) bool {
	if !e.Active {
		return false
	}
	if e.ExpiresAt != nil && !now.Before(*e.ExpiresAt) {
		return false
	}
	return true
}
