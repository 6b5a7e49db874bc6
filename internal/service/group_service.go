package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mmynk/groupsplit/internal/calculator"
	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/middleware"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/observability"
	"github.com/mmynk/groupsplit/internal/storage"
	"github.com/mmynk/groupsplit/pkg/api"
	"github.com/mmynk/groupsplit/pkg/api/apiconnect"
)

var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// BalanceRecorder receives engine observations. *observability.Metrics implements it.
type BalanceRecorder interface {
	ObserveBalances(d time.Duration, settlements int)
	IncrDanglingRef(role string)
}

// GroupService implements the Connect GroupService
type GroupService struct {
	store    storage.Store
	rates    *currency.Source
	recorder BalanceRecorder
}

// NewGroupService creates a new GroupService with the given storage backend
// and rate source. recorder may be nil.
func NewGroupService(store storage.Store, rates *currency.Source, recorder BalanceRecorder) *GroupService {
	return &GroupService{store: store, rates: rates, recorder: recorder}
}

// CreateGroup creates a new group with its initial members.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"base_currency", req.Msg.BaseCurrency,
		"members_count", len(req.Msg.Members),
	)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	table := s.rates.Current()
	base, err := table.Validate(req.Msg.BaseCurrency)
	if err != nil {
		return nil, toConnectError(err)
	}

	group := &models.Group{
		Name:         req.Msg.Name,
		Description:  req.Msg.Description,
		BaseCurrency: base,
	}
	for _, in := range req.Msg.Members {
		if err := checkPreferred(table, in.PreferredCurrency); err != nil {
			return nil, err
		}
		group.Members = append(group.Members, fromMemberInput("", in))
	}

	// Save to storage (generates IDs and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group created", "group_id", group.ID)
	recordActivity(ctx, s.store, group.ID, models.ActionGroupCreated,
		fmt.Sprintf("created group %q with %d members", group.Name, len(group.Members)))

	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group with its members and expenses.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("GetGroup successful", "group_id", group.ID, "name", group.Name)

	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group)}), nil
}

// ListGroups retrieves all groups.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	slog.Info("ListGroups request received")

	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Group, len(groups))
	for i, group := range groups {
		out[i] = toAPIGroup(group)
	}

	slog.Info("ListGroups successful", "count", len(groups))

	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// DeleteGroup removes a group by ID.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	slog.Info("DeleteGroup request received", "group_id", req.Msg.GroupID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	if err := s.store.DeleteGroup(ctx, req.Msg.GroupID); err != nil {
		slog.Error("DeleteGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group deleted", "group_id", req.Msg.GroupID)
	recordActivity(ctx, s.store, req.Msg.GroupID, models.ActionGroupDeleted, "deleted group")

	return connect.NewResponse(&api.DeleteGroupResponse{}), nil
}

// AddMember adds a member to a group.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	slog.Info("AddMember request received", "group_id", req.Msg.GroupID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if err := checkPreferred(s.rates.Current(), req.Msg.Member.PreferredCurrency); err != nil {
		return nil, err
	}

	member := fromMemberInput(req.Msg.GroupID, req.Msg.Member)
	if err := s.store.AddMember(ctx, &member); err != nil {
		slog.Error("AddMember failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Member added", "group_id", member.GroupID, "member_id", member.ID)
	recordActivity(ctx, s.store, member.GroupID, models.ActionMemberAdded, fmt.Sprintf("added %s", member.Name))

	return connect.NewResponse(&api.AddMemberResponse{Member: toAPIMember(&member)}), nil
}

// RemoveMember removes a member who no expense refers to.
func (s *GroupService) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	slog.Info("RemoveMember request received", "group_id", req.Msg.GroupID, "member_id", req.Msg.MemberID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	if err := s.store.RemoveMember(ctx, req.Msg.GroupID, req.Msg.MemberID); err != nil {
		slog.Warn("RemoveMember failed", "member_id", req.Msg.MemberID, "error", err)
		return nil, toConnectError(err)
	}

	recordActivity(ctx, s.store, req.Msg.GroupID, models.ActionMemberRemoved, fmt.Sprintf("removed member %s", req.Msg.MemberID))

	return connect.NewResponse(&api.RemoveMemberResponse{}), nil
}

// AddExpense validates and logs a new expense.
func (s *GroupService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	slog.Info("AddExpense request received",
		"group_id", req.Msg.GroupID,
		"amount", req.Msg.Amount,
		"currency", req.Msg.Currency,
		"participants_count", len(req.Msg.Participants),
	)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	expense := &models.Expense{
		GroupID:      group.ID,
		Description:  req.Msg.Description,
		Category:     req.Msg.Category,
		Amount:       req.Msg.Amount,
		Currency:     currency.Code(req.Msg.Currency),
		PaidBy:       req.Msg.PaidBy,
		Participants: req.Msg.Participants,
		SplitMethod:  models.SplitMethod(req.Msg.SplitMethod),
		CustomSplit:  req.Msg.CustomSplit,
	}
	if req.Msg.Date > 0 {
		expense.Date = time.Unix(req.Msg.Date, 0).UTC()
	}

	if err := calculator.ValidateExpense(*expense, group.Members, s.rates.Current()); err != nil {
		slog.Warn("AddExpense rejected", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.AddExpense(ctx, expense); err != nil {
		slog.Error("AddExpense failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Expense added", "group_id", group.ID, "expense_id", expense.ID)
	recordActivity(ctx, s.store, group.ID, models.ActionExpenseAdded,
		fmt.Sprintf("%s: %.2f %s", expense.Description, expense.Amount, expense.Currency))

	return connect.NewResponse(&api.AddExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// DeleteExpense removes an expense from a group.
func (s *GroupService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	slog.Info("DeleteExpense request received", "group_id", req.Msg.GroupID, "expense_id", req.Msg.ExpenseID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	if err := s.store.DeleteExpense(ctx, req.Msg.GroupID, req.Msg.ExpenseID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, toConnectError(err)
	}

	recordActivity(ctx, s.store, req.Msg.GroupID, models.ActionExpenseDeleted, fmt.Sprintf("deleted expense %s", req.Msg.ExpenseID))

	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// GetGroupBalances computes every member's balance and the suggested
// settlements from the group's full expense list.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	groupID := req.Msg.GroupID
	slog.Info("GetGroupBalances request received", "group_id", groupID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	ctx, span := observability.Tracer().Start(ctx, "GroupService.GetGroupBalances")
	defer span.End()
	span.SetAttributes(attribute.String("group.id", groupID))

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load group")
		slog.Error("GetGroupBalances failed - group not found", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	// One snapshot for the whole computation.
	table := s.rates.Current()

	start := time.Now()
	result, err := calculator.CalculateGroup(group, table)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "calculate")
		slog.Error("GetGroupBalances failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Int("group.members", len(group.Members)),
		attribute.Int("group.expenses", len(group.Expenses)),
		attribute.Int("settlements", len(result.Settlements)),
	)
	if s.recorder != nil {
		s.recorder.ObserveBalances(elapsed, len(result.Settlements))
	}
	for _, ref := range result.Dangling {
		slog.Warn("Skipped expense reference to unknown member",
			"group_id", groupID,
			"expense_id", ref.ExpenseID,
			"member_id", ref.MemberID,
			"role", ref.Role,
		)
		if s.recorder != nil {
			s.recorder.IncrDanglingRef(string(ref.Role))
		}
	}

	resp, err := BuildBalancesResponse(group, result, table)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("GetGroupBalances successful",
		"group_id", groupID,
		"expenses_count", len(group.Expenses),
		"settlements_count", len(result.Settlements),
	)

	return connect.NewResponse(resp), nil
}

// BuildBalancesResponse renders an engine result for the wire, formatting
// amounts with table.
func BuildBalancesResponse(group *models.Group, result *calculator.Result, table *currency.Table) (*api.GetGroupBalancesResponse, error) {
	resp := &api.GetGroupBalancesResponse{
		GroupID:        group.ID,
		BaseCurrency:   string(group.BaseCurrency),
		Balances:       make([]*api.MemberBalance, 0, len(result.Summaries)),
		Settlements:    make([]*api.Settlement, 0, len(result.Settlements)),
		SettledUp:      result.IsSettled(),
		RatesUpdatedAt: unixOrZero(table),
	}

	for i := range result.Summaries {
		summary := &result.Summaries[i]
		formatted, err := table.Format(summary.TotalInPreferredCurrency, summary.PreferredCurrency)
		if err != nil {
			return nil, err
		}

		balance := &api.MemberBalance{
			Member:                   toAPIMember(&summary.Member),
			PreferredCurrency:        string(summary.PreferredCurrency),
			TotalInPreferredCurrency: summary.TotalInPreferredCurrency,
			TotalInBaseCurrency:      summary.TotalInBaseCurrency,
			Status:                   string(calculator.StandingOf(summary.TotalInBaseCurrency)),
			FormattedTotal:           formatted,
		}
		for _, code := range summary.Currencies() {
			b := summary.Balances[code]
			balance.Currencies = append(balance.Currencies, &api.CurrencyBalance{
				Currency: string(code),
				Paid:     b.Paid,
				Owed:     b.Owed,
				Net:      b.Net,
			})
		}
		resp.Balances = append(resp.Balances, balance)
	}

	for _, st := range result.Settlements {
		formatted, err := st.Describe(table)
		if err != nil {
			return nil, err
		}
		resp.Settlements = append(resp.Settlements, &api.Settlement{
			FromMemberID:              st.From.ID,
			FromName:                  st.From.Name,
			ToMemberID:                st.To.ID,
			ToName:                    st.To.Name,
			Amount:                    st.Amount,
			Currency:                  string(st.Currency),
			AmountInPreferredCurrency: st.AmountInPreferredCurrency,
			PreferredCurrency:         string(st.PreferredCurrency),
			AmountInCreditorCurrency:  st.AmountInCreditorCurrency,
			CreditorPreferredCurrency: string(st.CreditorPreferredCurrency),
			Formatted:                 formatted,
		})
	}

	for _, ref := range result.Dangling {
		resp.SkippedReferences = append(resp.SkippedReferences, &api.SkippedReference{
			ExpenseID: ref.ExpenseID,
			MemberID:  ref.MemberID,
			Role:      string(ref.Role),
		})
	}

	return resp, nil
}

// ListCurrencies returns the current rate table.
func (s *GroupService) ListCurrencies(ctx context.Context, req *connect.Request[api.ListCurrenciesRequest]) (*connect.Response[api.ListCurrenciesResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	table := s.rates.Current()
	list := table.Currencies(currency.Kind(req.Msg.Kind))
	out := make([]*api.Currency, len(list))
	for i, c := range list {
		out[i] = toAPICurrency(c)
	}

	return connect.NewResponse(&api.ListCurrenciesResponse{
		Currencies:     out,
		RatesUpdatedAt: unixOrZero(table),
	}), nil
}

// Convert converts an amount between two currencies using the current rates.
func (s *GroupService) Convert(ctx context.Context, req *connect.Request[api.ConvertRequest]) (*connect.Response[api.ConvertResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	table := s.rates.Current()
	amount, err := table.Convert(req.Msg.Amount, currency.Code(req.Msg.From), currency.Code(req.Msg.To))
	if err != nil {
		return nil, toConnectError(err)
	}
	formatted, err := table.Format(amount, currency.Code(req.Msg.To))
	if err != nil {
		return nil, toConnectError(err)
	}
	if amount < 0 {
		formatted = "-" + formatted
	}

	return connect.NewResponse(&api.ConvertResponse{
		Amount:         amount,
		Formatted:      formatted,
		RatesUpdatedAt: unixOrZero(table),
	}), nil
}

// checkPreferred accepts an empty code (use the base currency) or a known one.
func checkPreferred(table *currency.Table, code string) error {
	if code == "" {
		return nil
	}
	if _, err := table.Validate(code); err != nil {
		return toConnectError(err)
	}
	return nil
}

// recordActivity appends to the activity log. Failures are logged, not
// returned; the mutation already succeeded.
func recordActivity(ctx context.Context, store storage.Store, groupID, action, detail string) {
	if caller := middleware.GetEmail(ctx); caller != "" {
		detail += " (by " + caller + ")"
	}
	err := store.RecordActivity(ctx, &models.Activity{
		GroupID: groupID,
		Action:  action,
		Detail:  detail,
	})
	if err != nil {
		slog.Error("Failed to record activity", "action", action, "group_id", groupID, "error", err)
	}
}
