package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/patrickmn/go-cache"

	"github.com/mmynk/groupsplit/internal/auth"
	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/storage"
	"github.com/mmynk/groupsplit/pkg/api"
	"github.com/mmynk/groupsplit/pkg/api/apiconnect"
)

var _ apiconnect.AdminServiceHandler = (*AdminService)(nil)

const (
	statsCacheKey       = "stats"
	defaultActivityPage = 50
)

// CacheRecorder counts cache lookups. *observability.Metrics implements it.
type CacheRecorder interface {
	IncrCacheHit(cache string)
	IncrCacheMiss(cache string)
}

// AdminService implements the Connect AdminService.
type AdminService struct {
	store         storage.Store
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	rates         *currency.Source
	statsCache    *cache.Cache
	recorder      CacheRecorder
	now           func() time.Time
}

// NewAdminService creates a new AdminService. Stats are cached for statsTTL;
// a zero TTL disables the cache. recorder may be nil.
func NewAdminService(
	store storage.Store,
	authenticator auth.Authenticator,
	jwtManager *auth.JWTManager,
	rates *currency.Source,
	statsTTL time.Duration,
	recorder CacheRecorder,
) *AdminService {
	s := &AdminService{
		store:         store,
		authenticator: authenticator,
		jwtManager:    jwtManager,
		rates:         rates,
		recorder:      recorder,
		now:           time.Now,
	}
	if statsTTL > 0 {
		s.statsCache = cache.New(statsTTL, 2*statsTTL)
	}
	return s
}

// Login authenticates the operator and returns a session token.
func (s *AdminService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	slog.Info("Login request received", "email", req.Msg.Email)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	principal, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		slog.Warn("Login failed", "email", req.Msg.Email, "error", err)
		return nil, toConnectError(err)
	}

	token, expiresAt, err := s.jwtManager.Generate(principal)
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Login successful", "email", principal.Email)
	recordActivity(ctx, s.store, "", models.ActionAdminLogin, fmt.Sprintf("%s signed in", principal.Email))

	return connect.NewResponse(&api.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	}), nil
}

// GetStats returns aggregate counts with per-currency expense totals.
func (s *AdminService) GetStats(ctx context.Context, req *connect.Request[api.GetStatsRequest]) (*connect.Response[api.GetStatsResponse], error) {
	if s.statsCache != nil {
		if cached, ok := s.statsCache.Get(statsCacheKey); ok {
			s.cacheHit()
			return connect.NewResponse(cached.(*api.GetStatsResponse)), nil
		}
		s.cacheMiss()
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		slog.Error("GetStats failed", "error", err)
		return nil, toConnectError(err)
	}

	resp := s.buildStats(stats)
	if s.statsCache != nil {
		s.statsCache.SetDefault(statsCacheKey, resp)
	}

	return connect.NewResponse(resp), nil
}

func (s *AdminService) buildStats(stats *models.Stats) *api.GetStatsResponse {
	table := s.rates.Current()
	resp := &api.GetStatsResponse{
		Groups:          stats.Groups,
		Members:         stats.Members,
		Expenses:        stats.Expenses,
		ActivityLastDay: stats.ActivityLastDay,
		ExpenseTotals:   make([]*api.CurrencyTotal, 0, len(stats.ExpenseTotals)),
		GeneratedAt:     s.now().Unix(),
	}

	for _, t := range stats.ExpenseTotals {
		total := &api.CurrencyTotal{
			Currency: t.Currency,
			Total:    t.Total,
			Count:    t.Count,
		}
		code := currency.Code(t.Currency)
		if formatted, err := table.Format(t.Total, code); err == nil {
			total.Formatted = formatted
		} else {
			total.Formatted = fmt.Sprintf("%.2f %s", t.Total, t.Currency)
		}
		if usd, err := table.Convert(t.Total, code, currency.USD); err == nil {
			total.TotalInUSD = usd
		} else {
			slog.Warn("Expense total in unknown currency", "currency", t.Currency)
		}
		resp.ExpenseTotals = append(resp.ExpenseTotals, total)
	}

	return resp
}

// ListActivity pages through the activity log, newest first.
func (s *AdminService) ListActivity(ctx context.Context, req *connect.Request[api.ListActivityRequest]) (*connect.Response[api.ListActivityResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	limit := req.Msg.Limit
	if limit == 0 {
		limit = defaultActivityPage
	}

	entries, err := s.store.ListActivity(ctx, limit, req.Msg.Offset)
	if err != nil {
		slog.Error("ListActivity failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Activity, len(entries))
	for i, e := range entries {
		out[i] = toAPIActivity(e)
	}

	return connect.NewResponse(&api.ListActivityResponse{Entries: out}), nil
}

func (s *AdminService) cacheHit() {
	if s.recorder != nil {
		s.recorder.IncrCacheHit(statsCacheKey)
	}
}

func (s *AdminService) cacheMiss() {
	if s.recorder != nil {
		s.recorder.IncrCacheMiss(statsCacheKey)
	}
}
