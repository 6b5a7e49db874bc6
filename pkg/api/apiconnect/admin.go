package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/groupsplit/pkg/api"
)

// AdminServiceName is the fully-qualified name of the AdminService service.
const AdminServiceName = "groupsplit.v1.AdminService"

// Procedure paths of AdminService RPCs.
const (
	AdminServiceLoginProcedure        = "/groupsplit.v1.AdminService/Login"
	AdminServiceGetStatsProcedure     = "/groupsplit.v1.AdminService/GetStats"
	AdminServiceListActivityProcedure = "/groupsplit.v1.AdminService/ListActivity"
)

// AdminServiceHandler is implemented by the server side of AdminService.
type AdminServiceHandler interface {
	Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error)
	GetStats(context.Context, *connect.Request[api.GetStatsRequest]) (*connect.Response[api.GetStatsResponse], error)
	ListActivity(context.Context, *connect.Request[api.ListActivityRequest]) (*connect.Response[api.ListActivityResponse], error)
}

// NewAdminServiceHandler builds an HTTP handler for every AdminService procedure.
func NewAdminServiceHandler(svc AdminServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSON(opts)
	routes := map[string]http.Handler{
		AdminServiceLoginProcedure:        connect.NewUnaryHandler(AdminServiceLoginProcedure, svc.Login, opts...),
		AdminServiceGetStatsProcedure:     connect.NewUnaryHandler(AdminServiceGetStatsProcedure, svc.GetStats, opts...),
		AdminServiceListActivityProcedure: connect.NewUnaryHandler(AdminServiceListActivityProcedure, svc.ListActivity, opts...),
	}
	return "/" + AdminServiceName + "/", router(routes)
}

// AdminServiceClient is a client for AdminService.
type AdminServiceClient interface {
	AdminServiceHandler
}

type adminServiceClient struct {
	login        *connect.Client[api.LoginRequest, api.LoginResponse]
	getStats     *connect.Client[api.GetStatsRequest, api.GetStatsResponse]
	listActivity *connect.Client[api.ListActivityRequest, api.ListActivityResponse]
}

// NewAdminServiceClient constructs a client for AdminService at baseURL.
func NewAdminServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AdminServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withJSONClient(opts)
	return &adminServiceClient{
		login:        connect.NewClient[api.LoginRequest, api.LoginResponse](httpClient, baseURL+AdminServiceLoginProcedure, opts...),
		getStats:     connect.NewClient[api.GetStatsRequest, api.GetStatsResponse](httpClient, baseURL+AdminServiceGetStatsProcedure, opts...),
		listActivity: connect.NewClient[api.ListActivityRequest, api.ListActivityResponse](httpClient, baseURL+AdminServiceListActivityProcedure, opts...),
	}
}

func (c *adminServiceClient) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *adminServiceClient) GetStats(ctx context.Context, req *connect.Request[api.GetStatsRequest]) (*connect.Response[api.GetStatsResponse], error) {
	return c.getStats.CallUnary(ctx, req)
}

func (c *adminServiceClient) ListActivity(ctx context.Context, req *connect.Request[api.ListActivityRequest]) (*connect.Response[api.ListActivityResponse], error) {
	return c.listActivity.CallUnary(ctx, req)
}

func withJSON(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(api.JSONCodec{})}, opts...)
}

func withJSONClient(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(api.JSONCodec{})}, opts...)
}

func router(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}
