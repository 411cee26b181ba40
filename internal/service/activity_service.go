package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/activity"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// ActivityService implements the Connect ActivityService over the caller's feed.
type ActivityService struct {
	feed   *activity.Service
	logger *slog.Logger
}

var _ apiconnect.ActivityServiceHandler = (*ActivityService)(nil)

func NewActivityService(feed *activity.Service, logger *slog.Logger) *ActivityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityService{feed: feed, logger: logger}
}

// ListActivities returns the caller's feed, oldest first.
func (s *ActivityService) ListActivities(ctx context.Context, req *connect.Request[api.ListActivitiesRequest]) (*connect.Response[api.ListActivitiesResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	activities, err := s.feed.List(ctx, userID, req.Msg.UnreadOnly)
	if err != nil {
		s.logger.Error("ListActivities failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	out := make([]*api.Activity, len(activities))
	for i, a := range activities {
		out[i] = toAPIActivity(a)
	}
	return connect.NewResponse(&api.ListActivitiesResponse{Activities: out}), nil
}

// MarkActivitiesRead marks entries of the caller's feed read.
func (s *ActivityService) MarkActivitiesRead(ctx context.Context, req *connect.Request[api.MarkActivitiesReadRequest]) (*connect.Response[api.MarkActivitiesReadResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.feed.MarkRead(ctx, userID, req.Msg.ActivityIDs); err != nil {
		s.logger.Error("MarkActivitiesRead failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.logger.Info("Activities marked read", "user_id", userID, "count", len(req.Msg.ActivityIDs))
	return connect.NewResponse(&api.MarkActivitiesReadResponse{}), nil
}
