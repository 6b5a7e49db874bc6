package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupsplit/internal/auth"
	"github.com/mmynk/groupsplit/pkg/api"
)

const (
	pingProcedure   = "/test.v1.Test/Ping"
	publicProcedure = "/test.v1.Test/Public"
)

type ping struct {
	Caller string `json:"caller"`
	Role   string `json:"role"`
}

type rpcRecorder struct {
	mu    sync.Mutex
	codes []string
}

func (r *rpcRecorder) ObserveRPC(procedure, code string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
}

func setupServer(t *testing.T, interceptors ...connect.Interceptor) string {
	t.Helper()
	handle := func(ctx context.Context, req *connect.Request[ping]) (*connect.Response[ping], error) {
		return connect.NewResponse(&ping{Caller: GetEmail(ctx), Role: GetRole(ctx)}), nil
	}
	opts := []connect.HandlerOption{
		connect.WithCodec(api.JSONCodec{}),
		connect.WithInterceptors(interceptors...),
	}

	mux := http.NewServeMux()
	mux.Handle(pingProcedure, connect.NewUnaryHandler(pingProcedure, handle, opts...))
	mux.Handle(publicProcedure, connect.NewUnaryHandler(publicProcedure, handle, opts...))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL
}

func call(t *testing.T, url, procedure, token string) (*ping, error) {
	t.Helper()
	client := connect.NewClient[ping, ping](http.DefaultClient, url+procedure, connect.WithCodec(api.JSONCodec{}))
	req := connect.NewRequest(&ping{})
	if token != "" {
		req.Header().Set("Authorization", token)
	}
	resp, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, _, err := jwtManager.Generate(&auth.Principal{Email: "admin@example.com", Role: auth.RoleAdmin})
	require.NoError(t, err)
	viewer, _, err := jwtManager.Generate(&auth.Principal{Email: "viewer@example.com", Role: "viewer"})
	require.NoError(t, err)

	rec := &rpcRecorder{}
	url := setupServer(t, LoggingInterceptor(rec), RequireAuth(jwtManager, publicProcedure))

	got, err := call(t, url, pingProcedure, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, &ping{Caller: "admin@example.com", Role: auth.RoleAdmin}, got)

	tests := []struct {
		name   string
		header string
		code   connect.Code
	}{
		{"missing header", "", connect.CodeUnauthenticated},
		{"not bearer", "Basic abc", connect.CodeUnauthenticated},
		{"bad token", "Bearer nope", connect.CodeUnauthenticated},
		{"wrong role", "Bearer " + viewer, connect.CodePermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, url, pingProcedure, tt.header)
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}

	got, err = call(t, url, publicProcedure, "")
	require.NoError(t, err)
	assert.Empty(t, got.Caller)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"ok", "unauthenticated", "unauthenticated", "unauthenticated", "permission_denied", "ok"}, rec.codes)
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, _, err := jwtManager.Generate(&auth.Principal{Email: "admin@example.com", Role: auth.RoleAdmin})
	require.NoError(t, err)

	url := setupServer(t, OptionalAuth(jwtManager), LoggingInterceptor(nil))

	got, err := call(t, url, pingProcedure, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", got.Caller)

	got, err = call(t, url, pingProcedure, "Bearer invalid")
	require.NoError(t, err)
	assert.Empty(t, got.Caller)

	got, err = call(t, url, pingProcedure, "")
	require.NoError(t, err)
	assert.Empty(t, got.Caller)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

func TestLoggingInterceptor_NamesCallerAuthenticatedInside(t *testing.T) {
	var buf lockedBuffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, _, err := jwtManager.Generate(&auth.Principal{Email: "admin@example.com", Role: auth.RoleAdmin})
	require.NoError(t, err)

	url := setupServer(t, LoggingInterceptor(nil), RequireAuth(jwtManager))
	_, err = call(t, url, pingProcedure, "Bearer "+token)
	require.NoError(t, err)

	var entry struct {
		Msg    string `json:"msg"`
		Caller string `json:"caller"`
		Role   string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "RPC ok", entry.Msg)
	assert.Equal(t, "admin@example.com", entry.Caller)
	assert.Equal(t, auth.RoleAdmin, entry.Role)
}
