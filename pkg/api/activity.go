package api

import "time"

// Activity is one entry of the caller's notification feed.
type Activity struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListActivitiesRequest struct {
	UnreadOnly bool `json:"unread_only,omitempty"`
}

type ListActivitiesResponse struct {
	Activities []*Activity `json:"activities"`
}

// MarkActivitiesReadRequest marks the listed activities read. An empty list
// marks the whole feed.
type MarkActivitiesReadRequest struct {
	ActivityIDs []string `json:"activity_ids,omitempty"`
}

type MarkActivitiesReadResponse struct{}
