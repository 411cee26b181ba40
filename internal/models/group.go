package models

import "time"

// Group represents a participant list that can own expenses.
// Membership is managed outside the ledger; the ledger only asks whether a user
// belongs to a group.
type Group struct {
	// ID is the unique identifier for the group (prefix "grp").
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string

	// Members is the list of user IDs in this group.
	Members []string

	// CreatedAt is when the group was created.
	CreatedAt time.Time
}

// HasMember reports whether userID is in the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}
