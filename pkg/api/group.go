package api

import "time"

// Group is a named participant list.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateGroupRequest creates a group. The caller is always added as a member.
type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type AddGroupMembersRequest struct {
	GroupID string   `json:"group_id"`
	Members []string `json:"members"`
}

type AddGroupMembersResponse struct {
	Group *Group `json:"group"`
}
