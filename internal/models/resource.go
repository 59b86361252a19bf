package models

import "time"

type Collection struct {
	ID           string
	OwnerID      string
	Title        string
	Active       bool
	AutoDeleteAt *time.Time // armed when the first photo is attached
	Deletion     Deletion
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Photo carries two identifiers: ID is the surrogate used everywhere
// internally and by authenticated callers, ShareToken is the only key the
// unauthenticated public lookup accepts. They are generated independently.
type Photo struct {
	ID           string
	OwnerID      string
	ShareToken   string
	Bucket       string
	ObjectKey    string
	ThumbnailKey string
	Format       string
	Width        int
	Height       int
	SizeBytes    int64
	Tags         []string
	Active       bool
	Deletion     Deletion
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
