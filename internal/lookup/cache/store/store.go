// Package store holds the profile cache backends.
//
// Every backend treats an entry as live only while now < ExpiresAt, with now
// taken from requestcontext.Now. Writes are last-write-wins.
package store

import (
	"time"

	"lookout/internal/lookup/models"
	"lookout/pkg/platform/sentinel"
)

// ErrNotFound is returned for a missing or expired entry.
var ErrNotFound = sentinel.ErrNotFound

// Entry is one cached merged profile.
type Entry struct {
	Key       string
	Kind      models.IdentifierKind
	Profile   models.MergedProfile
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// Live reports whether the entry is still valid at now.
func (e Entry) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
