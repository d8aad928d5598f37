package model

import "time"

// Identity is the stable reference to a user. ID never changes once assigned; Name is
// the last known display name and may be refreshed.
type Identity struct {
	ID       string
	Name     string
	Resolved bool // backed by a row in the users table
}

// UnresolvedIdentity builds a reference for a user that has never been seen.
func UnresolvedIdentity(id string) Identity {
	return Identity{ID: id}
}

// DisplayName returns the cached name, falling back to the ID.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.ID
}

// NameEntry is one name a user has been seen with.
type NameEntry struct {
	Name      string
	FirstSeen time.Time
}

// NameHistory lists a user's names, oldest first.
type NameHistory struct {
	UserID  string
	Entries []NameEntry
}

// Current returns the most recent name, or "" when the history is empty.
func (h NameHistory) Current() string {
	if len(h.Entries) == 0 {
		return ""
	}
	return h.Entries[len(h.Entries)-1].Name
}
