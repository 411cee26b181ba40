package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// GroupService implements the Connect GroupService. It is the minimal group
// directory the ledger checks membership against.
type GroupService struct {
	store    storage.GroupStore
	notifier ledger.Notifier
	logger   *slog.Logger
}

var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService with the given storage backend.
// notifier may be nil.
func NewGroupService(store storage.GroupStore, notifier ledger.Notifier, logger *slog.Logger) *GroupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupService{store: store, notifier: notifier, logger: logger}
}

// CreateGroup creates a new group with the caller as a member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	if req.Msg.Name == "" {
		return nil, invalidArgument("name required")
	}

	group := &models.Group{
		Name:    req.Msg.Name,
		Members: uniqueMembers(append([]string{userID}, req.Msg.Members...)),
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Group created", "group_id", group.ID)

	s.notify(ctx, userID, models.ActionGroupCreated, fmt.Sprintf("You created group %s.", group.Name))
	for _, m := range group.Members {
		if m != userID {
			s.notify(ctx, m, models.ActionAddedToGroup, fmt.Sprintf("%s added you to group %s.", userID, group.Name))
		}
	}

	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	if err := requireID("group_id", req.Msg.GroupID, models.PrefixGroup); err != nil {
		return nil, err
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		s.logger.Error("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	if !group.HasMember(userID) {
		return nil, toConnectError(fmt.Errorf("%w: %s is not a member of group %s", ledger.ErrForbidden, userID, group.ID))
	}

	s.logger.Info("GetGroup successful", "group_id", group.ID, "name", group.Name)

	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group)}), nil
}

// AddGroupMembers adds members to a group the caller belongs to.
func (s *GroupService) AddGroupMembers(ctx context.Context, req *connect.Request[api.AddGroupMembersRequest]) (*connect.Response[api.AddGroupMembersResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	groupID := req.Msg.GroupID
	s.logger.Info("AddGroupMembers request received",
		"group_id", groupID,
		"members_count", len(req.Msg.Members),
	)

	if err := requireID("group_id", groupID, models.PrefixGroup); err != nil {
		return nil, err
	}

	before, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !before.HasMember(userID) {
		return nil, toConnectError(fmt.Errorf("%w: %s is not a member of group %s", ledger.ErrForbidden, userID, groupID))
	}

	members := uniqueMembers(req.Msg.Members)
	if err := s.store.AddGroupMembers(ctx, groupID, members); err != nil {
		s.logger.Error("AddGroupMembers failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	// Fetch updated group to get the final member list
	updated, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		s.logger.Error("Failed to fetch updated group", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	for _, m := range members {
		if !before.HasMember(m) {
			s.notify(ctx, m, models.ActionAddedToGroup, fmt.Sprintf("%s added you to group %s.", userID, updated.Name))
		}
	}

	s.logger.Info("Group members added", "group_id", groupID, "members_count", len(updated.Members))

	return connect.NewResponse(&api.AddGroupMembersResponse{Group: toAPIGroup(updated)}), nil
}

func (s *GroupService) notify(ctx context.Context, userID, action, description string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, action, description); err != nil {
		s.logger.Warn("Failed to send notification", "user_id", userID, "action", action, "error", err)
	}
}

// uniqueMembers drops empty and repeated ids, keeping first-seen order.
func uniqueMembers(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
