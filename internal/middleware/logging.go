package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// RPCRecorder receives one observation per finished RPC.
type RPCRecorder interface {
	ObserveRPC(procedure, code string, duration time.Duration)
}

// callerKey holds a *callerInfo that auth interceptors running inside the
// logging interceptor fill in, so the log line names the caller either way.
const callerKey contextKey = "caller"

type callerInfo struct {
	email string
	role  string
}

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, caller, duration, and any error codes/messages.
// recorder may be nil.
func LoggingInterceptor(recorder RPCRecorder) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			seen := &callerInfo{email: GetEmail(ctx), role: GetRole(ctx)}

			resp, err := next(context.WithValue(ctx, callerKey, seen), req)
			caller := seen.email // empty if anonymous

			elapsed := time.Since(start)
			duration := elapsed.Milliseconds()
			code := "ok"
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					code = connectErr.Code().String()
					slog.Warn("RPC error",
						"procedure", procedure,
						"code", connectErr.Code(),
						"error", connectErr.Message(),
						"caller", caller,
						"duration_ms", duration,
					)
				} else {
					code = connect.CodeUnknown.String()
					slog.Error("RPC error",
						"procedure", procedure,
						"error", err,
						"caller", caller,
						"duration_ms", duration,
					)
				}
			} else {
				slog.Info("RPC ok",
					"procedure", procedure,
					"caller", caller,
					"role", seen.role,
					"duration_ms", duration,
				)
			}

			if recorder != nil {
				recorder.ObserveRPC(procedure, code, elapsed)
			}
			return resp, err
		}
	}
}
