package models

import (
	"strings"
	"time"
)

type EntityKind string

const (
	KindPhotographer EntityKind = "photographer"
	KindClient       EntityKind = "client"
	KindGuest        EntityKind = "guest"
	KindPhoto        EntityKind = "photo"
	KindCollection   EntityKind = "collection"
)

const OriginDirect = "direct"

const cascadePrefix = "cascade:"

// CascadeOrigin tags a deletion as a consequence of the parent's deletion,
// so a later restore of the parent knows which children to bring back.
func CascadeOrigin(parentID string) string {
	return cascadePrefix + parentID
}

func IsCascadeFrom(origin string, parentID string) bool {
	return strings.TrimPrefix(origin, cascadePrefix) == parentID && origin != parentID
}

// Deletion is the derived soft-delete state carried by every deletable
// entity. A zero value means the entity is not scheduled. An entity with
// Active=false but no schedule is administratively disabled, which is a
// different condition from pending deletion.
type Deletion struct {
	DeletedAt        *time.Time
	ScheduledPurgeAt *time.Time
	Reason           string
	Origin           string
}

func (d Deletion) Pending() bool {
	return d.ScheduledPurgeAt != nil
}

// PurgeDue reports whether the grace window has elapsed as of now.
func (d Deletion) PurgeDue(now time.Time) bool {
	return d.ScheduledPurgeAt != nil && !now.Before(*d.ScheduledPurgeAt)
}

// MarkDeleted is the Active -> PendingDeletion transition as a pure
// function of now. Calling it on an already pending state refreshes the
// reason and timestamps rather than erroring; overlapping deletion requests
// from admins and owners are expected.
func MarkDeleted(now time.Time, grace time.Duration, reason string, origin string) Deletion {
	deletedAt := now
	purgeAt := now.Add(grace)
	return Deletion{
		DeletedAt:        &deletedAt,
		ScheduledPurgeAt: &purgeAt,
		Reason:           reason,
		Origin:           origin,
	}
}

// Restored is the PendingDeletion -> Active transition: all four fields
// cleared.
func Restored() Deletion {
	return Deletion{}
}

// AutoExpiryDue reports whether a collection's delivery clock has elapsed.
func AutoExpiryDue(autoDeleteAt *time.Time, now time.Time) bool {
	return autoDeleteAt != nil && !now.Before(*autoDeleteAt)
}
