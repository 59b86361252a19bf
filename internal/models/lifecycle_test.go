package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkDeletedSchedulesPurge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	grace := 168 * time.Hour

	d := MarkDeleted(now, grace, "client request", OriginDirect)
	require.True(t, d.Pending())
	assert.Equal(t, now, *d.DeletedAt)
	assert.Equal(t, now.Add(grace), *d.ScheduledPurgeAt)

	assert.False(t, d.PurgeDue(now))
	assert.False(t, d.PurgeDue(now.Add(grace-time.Second)))
	assert.True(t, d.PurgeDue(now.Add(grace)))
	assert.True(t, d.PurgeDue(now.Add(grace+time.Hour)))
}

func TestRestoredClearsEverything(t *testing.T) {
	now := time.Now().UTC()
	d := MarkDeleted(now, time.Hour, "r", OriginDirect)
	require.True(t, d.Pending())

	d = Restored()
	assert.False(t, d.Pending())
	assert.Nil(t, d.DeletedAt)
	assert.Empty(t, d.Reason)
	assert.Empty(t, d.Origin)
}

func TestCascadeOrigin(t *testing.T) {
	origin := CascadeOrigin("col-1")
	assert.True(t, IsCascadeFrom(origin, "col-1"))
	assert.False(t, IsCascadeFrom(origin, "col-2"))
	assert.False(t, IsCascadeFrom(OriginDirect, "col-1"))
	assert.False(t, IsCascadeFrom("", "col-1"))
}

func TestAutoExpiryDue(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, AutoExpiryDue(nil, now), "unarmed clock never fires")
	assert.True(t, AutoExpiryDue(&past, now))
	assert.True(t, AutoExpiryDue(&now, now))
	assert.False(t, AutoExpiryDue(&future, now))
}

func TestEdgeCurrency(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, Edge{Active: true}.Current(now))
	assert.True(t, Edge{Active: true, ExpiresAt: &future}.Current(now))
	assert.False(t, Edge{Active: true, ExpiresAt: &past}.Current(now))
	assert.False(t, Edge{Active: false}.Current(now))
	assert.False(t, Edge{Active: false, ExpiresAt: &future}.Current(now))
}

func TestPrincipalExpiredOnlyForGuests(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	guest := Principal{Role: RoleGuest, ExpiresAt: &past}
	assert.True(t, guest.Expired(now))

	fresh := now.Add(time.Minute)
	guest.ExpiresAt = &fresh
	assert.False(t, guest.Expired(now))

	// Other roles carry no expiry semantics even if the field is set.
	client := Principal{Role: RoleClient, ExpiresAt: &past}
	assert.False(t, client.Expired(now))

	assert.False(t, Principal{Role: RoleGuest}.Expired(now))
}
