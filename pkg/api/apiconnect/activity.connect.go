package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/api"
)

// ActivityServiceName is the fully-qualified name of the ActivityService service.
const ActivityServiceName = "splitledger.v1.ActivityService"

// Procedure paths of ActivityService.
const (
	ActivityServiceListActivitiesProcedure     = "/splitledger.v1.ActivityService/ListActivities"
	ActivityServiceMarkActivitiesReadProcedure = "/splitledger.v1.ActivityService/MarkActivitiesRead"
)

// ActivityServiceClient is a client for the splitledger.v1.ActivityService service.
type ActivityServiceClient interface {
	ListActivities(context.Context, *connect.Request[api.ListActivitiesRequest]) (*connect.Response[api.ListActivitiesResponse], error)
	MarkActivitiesRead(context.Context, *connect.Request[api.MarkActivitiesReadRequest]) (*connect.Response[api.MarkActivitiesReadResponse], error)
}

// NewActivityServiceClient constructs a client for the splitledger.v1.ActivityService service.
func NewActivityServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ActivityServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &activityServiceClient{
		listActivities:     connect.NewClient[api.ListActivitiesRequest, api.ListActivitiesResponse](httpClient, baseURL+ActivityServiceListActivitiesProcedure, opts...),
		markActivitiesRead: connect.NewClient[api.MarkActivitiesReadRequest, api.MarkActivitiesReadResponse](httpClient, baseURL+ActivityServiceMarkActivitiesReadProcedure, opts...),
	}
}

type activityServiceClient struct {
	listActivities     *connect.Client[api.ListActivitiesRequest, api.ListActivitiesResponse]
	markActivitiesRead *connect.Client[api.MarkActivitiesReadRequest, api.MarkActivitiesReadResponse]
}

func (c *activityServiceClient) ListActivities(ctx context.Context, req *connect.Request[api.ListActivitiesRequest]) (*connect.Response[api.ListActivitiesResponse], error) {
	return c.listActivities.CallUnary(ctx, req)
}

func (c *activityServiceClient) MarkActivitiesRead(ctx context.Context, req *connect.Request[api.MarkActivitiesReadRequest]) (*connect.Response[api.MarkActivitiesReadResponse], error) {
	return c.markActivitiesRead.CallUnary(ctx, req)
}

// ActivityServiceHandler is implemented by the server side of splitledger.v1.ActivityService.
type ActivityServiceHandler interface {
	ListActivities(context.Context, *connect.Request[api.ListActivitiesRequest]) (*connect.Response[api.ListActivitiesResponse], error)
	MarkActivitiesRead(context.Context, *connect.Request[api.MarkActivitiesReadRequest]) (*connect.Response[api.MarkActivitiesReadResponse], error)
}

// NewActivityServiceHandler builds an HTTP handler from the service implementation.
func NewActivityServiceHandler(svc ActivityServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	handlers := map[string]http.Handler{
		ActivityServiceListActivitiesProcedure:     connect.NewUnaryHandler(ActivityServiceListActivitiesProcedure, svc.ListActivities, opts...),
		ActivityServiceMarkActivitiesReadProcedure: connect.NewUnaryHandler(ActivityServiceMarkActivitiesReadProcedure, svc.MarkActivitiesRead, opts...),
	}
	return "/" + ActivityServiceName + "/", route(handlers)
}
