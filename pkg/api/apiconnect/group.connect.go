package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/api"
)

// GroupServiceName is the fully-qualified name of the GroupService service.
const GroupServiceName = "splitledger.v1.GroupService"

// Procedure paths of GroupService.
const (
	GroupServiceCreateGroupProcedure     = "/splitledger.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure        = "/splitledger.v1.GroupService/GetGroup"
	GroupServiceAddGroupMembersProcedure = "/splitledger.v1.GroupService/AddGroupMembers"
)

// GroupServiceClient is a client for the splitledger.v1.GroupService service.
type GroupServiceClient interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	AddGroupMembers(context.Context, *connect.Request[api.AddGroupMembersRequest]) (*connect.Response[api.AddGroupMembersResponse], error)
}

// NewGroupServiceClient constructs a client for the splitledger.v1.GroupService service.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &groupServiceClient{
		createGroup:     connect.NewClient[api.CreateGroupRequest, api.CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:        connect.NewClient[api.GetGroupRequest, api.GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		addGroupMembers: connect.NewClient[api.AddGroupMembersRequest, api.AddGroupMembersResponse](httpClient, baseURL+GroupServiceAddGroupMembersProcedure, opts...),
	}
}

type groupServiceClient struct {
	createGroup     *connect.Client[api.CreateGroupRequest, api.CreateGroupResponse]
	getGroup        *connect.Client[api.GetGroupRequest, api.GetGroupResponse]
	addGroupMembers *connect.Client[api.AddGroupMembersRequest, api.AddGroupMembersResponse]
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) AddGroupMembers(ctx context.Context, req *connect.Request[api.AddGroupMembersRequest]) (*connect.Response[api.AddGroupMembersResponse], error) {
	return c.addGroupMembers.CallUnary(ctx, req)
}

// GroupServiceHandler is implemented by the server side of splitledger.v1.GroupService.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	AddGroupMembers(context.Context, *connect.Request[api.AddGroupMembersRequest]) (*connect.Response[api.AddGroupMembersResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler from the service implementation.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	handlers := map[string]http.Handler{
		GroupServiceCreateGroupProcedure:     connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...),
		GroupServiceGetGroupProcedure:        connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...),
		GroupServiceAddGroupMembersProcedure: connect.NewUnaryHandler(GroupServiceAddGroupMembersProcedure, svc.AddGroupMembers, opts...),
	}
	return "/" + GroupServiceName + "/", route(handlers)
}
