package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/mmynk/groupsplit/internal/auth"
	"github.com/mmynk/groupsplit/internal/middleware"
	"github.com/mmynk/groupsplit/internal/observability"
	"github.com/mmynk/groupsplit/pkg/api/apiconnect"
)

// routerDeps is everything the HTTP layer needs.
type routerDeps struct {
	groups     apiconnect.GroupServiceHandler
	admin      apiconnect.AdminServiceHandler
	jwtManager *auth.JWTManager
	metrics    *observability.Metrics

	// rateLimit is in ulule/limiter format ("300-M"); empty disables limiting.
	rateLimit string
}

func newRouter(deps routerDeps) (http.Handler, error) {
	var rateLimiter *limiter.Limiter
	if deps.rateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(deps.rateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit %q: %w", deps.rateLimit, err)
		}
		rateLimiter = limiter.New(memory.NewStore(), rate)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(loggingMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(deps.metrics.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		if rateLimiter != nil {
			r.Use(limiterhttp.NewMiddleware(rateLimiter).Handler)
		}

		// OptionalAuth runs first so the logging interceptor sees the caller.
		groupPath, groupHandler := apiconnect.NewGroupServiceHandler(deps.groups,
			connect.WithInterceptors(
				middleware.OptionalAuth(deps.jwtManager),
				middleware.LoggingInterceptor(deps.metrics),
			),
		)
		r.Handle(groupPath+"*", groupHandler)

		// RequireAuth runs inside logging so rejected calls are still counted;
		// it hands the caller back through the context for the log line.
		adminPath, adminHandler := apiconnect.NewAdminServiceHandler(deps.admin,
			connect.WithInterceptors(
				middleware.LoggingInterceptor(deps.metrics),
				middleware.RequireAuth(deps.jwtManager, apiconnect.AdminServiceLoginProcedure),
			),
		)
		r.Handle(adminPath+"*", adminHandler)
	})

	return r, nil
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("Request completed",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
