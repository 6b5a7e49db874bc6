package service

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/groupsplit/internal/calculator"
	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/storage/sqlite"
	"github.com/mmynk/groupsplit/pkg/api"
	"github.com/mmynk/groupsplit/pkg/api/apiconnect"
)

type fakeBalanceRecorder struct {
	observed    int
	settlements int
	dangling    map[string]int
}

func (f *fakeBalanceRecorder) ObserveBalances(_ time.Duration, settlements int) {
	f.observed++
	f.settlements += settlements
}

func (f *fakeBalanceRecorder) IncrDanglingRef(role string) {
	if f.dangling == nil {
		f.dangling = map[string]int{}
	}
	f.dangling[role]++
}

// setupGroupTestServer creates a test server backed by a temporary SQLite database
func setupGroupTestServer(t *testing.T) (apiconnect.GroupServiceClient, *fakeBalanceRecorder) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "groupsplit-service-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	recorder := &fakeBalanceRecorder{}
	groupSvc := NewGroupService(store, currency.NewSource(currency.DefaultTable()), recorder)
	path, handler := apiconnect.NewGroupServiceHandler(groupSvc)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return apiconnect.NewGroupServiceClient(http.DefaultClient, server.URL), recorder
}

func createTestGroup(t *testing.T, client apiconnect.GroupServiceClient, base string, members ...*api.MemberInput) *api.Group {
	t.Helper()
	resp, err := client.CreateGroup(context.Background(), connect.NewRequest(&api.CreateGroupRequest{
		Name:         "Roommates",
		BaseCurrency: base,
		Members:      members,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

func memberIDs(group *api.Group) map[string]string {
	ids := make(map[string]string, len(group.Members))
	for _, m := range group.Members {
		ids[m.Name] = m.ID
	}
	return ids
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect error, got %T: %v", err, err)
	}
	if connectErr.Code() != want {
		t.Errorf("expected code %v, got %v (%s)", want, connectErr.Code(), connectErr.Message())
	}
}

func TestCreateGroup(t *testing.T) {
	client, _ := setupGroupTestServer(t)

	group := createTestGroup(t, client, "USD",
		&api.MemberInput{Name: "Alice"},
		&api.MemberInput{Name: "Bob", PreferredCurrency: "EUR"},
		&api.MemberInput{Name: "Charlie"},
	)

	if group.ID == "" {
		t.Error("expected group ID to be generated")
	}
	if group.BaseCurrency != "USD" {
		t.Errorf("expected base currency USD, got %q", group.BaseCurrency)
	}
	if len(group.Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(group.Members))
	}
	for i, name := range []string{"Alice", "Bob", "Charlie"} {
		if group.Members[i].Name != name {
			t.Errorf("member %d: expected %q, got %q", i, name, group.Members[i].Name)
		}
		if group.Members[i].ID == "" {
			t.Errorf("member %d: expected ID to be generated", i)
		}
	}
	if group.Members[1].PreferredCurrency != "EUR" {
		t.Errorf("expected Bob to prefer EUR, got %q", group.Members[1].PreferredCurrency)
	}
}

func TestCreateGroup_Invalid(t *testing.T) {
	client, _ := setupGroupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *api.CreateGroupRequest
	}{
		{"missing name", &api.CreateGroupRequest{BaseCurrency: "USD"}},
		{"unknown base currency", &api.CreateGroupRequest{Name: "Trip", BaseCurrency: "XYZ"}},
		{"lowercase base currency", &api.CreateGroupRequest{Name: "Trip", BaseCurrency: "usd"}},
		{"unknown preferred currency", &api.CreateGroupRequest{
			Name:         "Trip",
			BaseCurrency: "USD",
			Members:      []*api.MemberInput{{Name: "Alice", PreferredCurrency: "ZZZ"}},
		}},
		{"member without name", &api.CreateGroupRequest{
			Name:         "Trip",
			BaseCurrency: "USD",
			Members:      []*api.MemberInput{{Email: "alice@example.com"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateGroup(ctx, connect.NewRequest(tt.req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestGetGroup(t *testing.T) {
	client, _ := setupGroupTestServer(t)
	ctx := context.Background()

	created := createTestGroup(t, client, "EUR", &api.MemberInput{Name: "Alice"})

	resp, err := client.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: created.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if resp.Msg.Group.Name != "Roommates" {
		t.Errorf("expected name Roommates, got %q", resp.Msg.Group.Name)
	}
	if resp.Msg.Group.BaseCurrency != "EUR" {
		t.Errorf("expected base EUR, got %q", resp.Msg.Group.BaseCurrency)
	}

	_, err = client.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: "missing"}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestListAndDeleteGroups(t *testing.T) {
	client, _ := setupGroupTestServer(t)
	ctx := context.Background()

	first := createTestGroup(t, client, "USD")
	createTestGroup(t, client, "USD")

	list, err := client.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(list.Msg.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(list.Msg.Groups))
	}

	if _, err := client.DeleteGroup(ctx, connect.NewRequest(&api.DeleteGroupRequest{GroupID: first.ID})); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	_, err = client.DeleteGroup(ctx, connect.NewRequest(&api.DeleteGroupRequest{GroupID: first.ID}))
	assertCode(t, err, connect.CodeNotFound)

	list, err = client.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(list.Msg.Groups) != 1 {
		t.Errorf("expected 1 group after delete, got %d", len(list.Msg.Groups))
	}
}

func TestAddAndRemoveMember(t *testing.T) {
	client, _ := setupGroupTestServer(t)
	ctx := context.Background()

	group := createTestGroup(t, client, "USD", &api.MemberInput{Name: "Alice"})
	alice := group.Members[0].ID

	added, err := client.AddMember(ctx, connect.NewRequest(&api.AddMemberRequest{
		GroupID: group.ID,
		Member:  &api.MemberInput{Name: "Dave", PreferredCurrency: "GBP"},
	}))
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	dave := added.Msg.Member.ID

	_, err = client.AddMember(ctx, connect.NewRequest(&api.AddMemberRequest{
		GroupID: group.ID,
		Member:  &api.MemberInput{Name: "Eve", PreferredCurrency: "ZZZ"},
	}))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = client.AddMember(ctx, connect.NewRequest(&api.AddMemberRequest{
		GroupID: "missing",
		Member:  &api.MemberInput{Name: "Eve"},
	}))
	assertCode(t, err, connect.CodeNotFound)

	_, err = client.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		GroupID:      group.ID,
		Description:  "Dinner",
		Amount:       40,
		Currency:     "USD",
		PaidBy:       alice,
		Participants: []string{alice, dave},
		SplitMethod:  "equal",
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	// Dave is now referenced by an expense.
	_, err = client.RemoveMember(ctx, connect.NewRequest(&api.RemoveMemberRequest{GroupID: group.ID, MemberID: dave}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	eve, err := client.AddMember(ctx, connect.NewRequest(&api.AddMemberRequest{
		GroupID: group.ID,
		Member:  &api.MemberInput{Name: "Eve"},
	}))
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if _, err := client.RemoveMember(ctx, connect.NewRequest(&api.RemoveMemberRequest{GroupID: group.ID, MemberID: eve.Msg.Member.ID})); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
}

func TestAddExpense_Validation(t *testing.T) {
	client, _ := setupGroupTestServer(t)
	ctx := context.Background()

	group := createTestGroup(t, client, "USD", &api.MemberInput{Name: "Alice"}, &api.MemberInput{Name: "Bob"})
	ids := memberIDs(group)
	alice, bob := ids["Alice"], ids["Bob"]

	valid := func() *api.AddExpenseRequest {
		return &api.AddExpenseRequest{
			GroupID:      group.ID,
			Description:  "Groceries",
			Amount:       30,
			Currency:     "USD",
			PaidBy:       alice,
			Participants: []string{alice, bob},
			SplitMethod:  "equal",
		}
	}

	tests := []struct {
		name   string
		mutate func(*api.AddExpenseRequest)
		code   connect.Code
	}{
		{"zero amount", func(r *api.AddExpenseRequest) { r.Amount = 0 }, connect.CodeInvalidArgument},
		{"unknown currency", func(r *api.AddExpenseRequest) { r.Currency = "XYZ" }, connect.CodeInvalidArgument},
		{"unknown payer", func(r *api.AddExpenseRequest) { r.PaidBy = "ghost" }, connect.CodeInvalidArgument},
		{"unknown participant", func(r *api.AddExpenseRequest) { r.Participants = []string{alice, "ghost"} }, connect.CodeInvalidArgument},
		{"no participants", func(r *api.AddExpenseRequest) { r.Participants = nil }, connect.CodeInvalidArgument},
		{"unknown split method", func(r *api.AddExpenseRequest) { r.SplitMethod = "shares" }, connect.CodeInvalidArgument},
		{"custom split not summing to one", func(r *api.AddExpenseRequest) {
			r.SplitMethod = "custom"
			r.CustomSplit = map[string]float64{alice: 0.5, bob: 0.4}
		}, connect.CodeInvalidArgument},
		{"missing group", func(r *api.AddExpenseRequest) { r.GroupID = "missing" }, connect.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			_, err := client.AddExpense(ctx, connect.NewRequest(req))
			assertCode(t, err, tt.code)
		})
	}

	t.Run("custom split accepted", func(t *testing.T) {
		req := valid()
		req.SplitMethod = "custom"
		req.CustomSplit = map[string]float64{alice: 0.25, bob: 0.75}
		resp, err := client.AddExpense(ctx, connect.NewRequest(req))
		if err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
		if resp.Msg.Expense.CustomSplit[bob] != 0.75 {
			t.Errorf("expected Bob's share 0.75, got %v", resp.Msg.Expense.CustomSplit[bob])
		}
	})
}

func TestDeleteExpense(t *testing.T) {
	client, _ := setupGroupTestServer(t)
	ctx := context.Background()

	group := createTestGroup(t, client, "USD", &api.MemberInput{Name: "Alice"}, &api.MemberInput{Name: "Bob"})
	ids := memberIDs(group)

	added, err := client.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		GroupID:      group.ID,
		Description:  "Taxi",
		Amount:       20,
		Currency:     "USD",
		PaidBy:       ids["Alice"],
		Participants: []string{ids["Alice"], ids["Bob"]},
		SplitMethod:  "equal",
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	req := &api.DeleteExpenseRequest{GroupID: group.ID, ExpenseID: added.Msg.Expense.ID}
	if _, err := client.DeleteExpense(ctx, connect.NewRequest(req)); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	_, err = client.DeleteExpense(ctx, connect.NewRequest(req))
	assertCode(t, err, connect.CodeNotFound)

	balances, err := client.GetGroupBalances(ctx, connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	if !balances.Msg.SettledUp {
		t.Error("expected group to be settled up after deleting its only expense")
	}
}

func TestGetGroupBalances(t *testing.T) {
	client, recorder := setupGroupTestServer(t)
	ctx := context.Background()

	group := createTestGroup(t, client, "USD",
		&api.MemberInput{Name: "Alice"},
		&api.MemberInput{Name: "Bob"},
		&api.MemberInput{Name: "Charlie"},
	)
	ids := memberIDs(group)

	_, err := client.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		GroupID:      group.ID,
		Description:  "Dinner",
		Amount:       90,
		Currency:     "USD",
		PaidBy:       ids["Alice"],
		Participants: []string{ids["Alice"], ids["Bob"], ids["Charlie"]},
		SplitMethod:  "equal",
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	resp, err := client.GetGroupBalances(ctx, connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}

	if resp.Msg.SettledUp {
		t.Error("expected group not to be settled up")
	}
	if len(resp.Msg.Balances) != 3 {
		t.Fatalf("expected 3 balances, got %d", len(resp.Msg.Balances))
	}

	want := map[string]struct {
		total  float64
		status string
	}{
		"Alice":   {60, string(calculator.GetsBack)},
		"Bob":     {-30, string(calculator.Owes)},
		"Charlie": {-30, string(calculator.Owes)},
	}
	for _, b := range resp.Msg.Balances {
		w := want[b.Member.Name]
		if math.Abs(b.TotalInBaseCurrency-w.total) > 0.001 {
			t.Errorf("%s: expected total %.2f, got %.4f", b.Member.Name, w.total, b.TotalInBaseCurrency)
		}
		if b.Status != w.status {
			t.Errorf("%s: expected status %q, got %q", b.Member.Name, w.status, b.Status)
		}
		if b.PreferredCurrency != "USD" {
			t.Errorf("%s: expected preferred currency to default to USD, got %q", b.Member.Name, b.PreferredCurrency)
		}
	}

	if len(resp.Msg.Settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(resp.Msg.Settlements))
	}
	wantLines := []string{"Bob pays Alice $30.00", "Charlie pays Alice $30.00"}
	for i, s := range resp.Msg.Settlements {
		if s.Formatted != wantLines[i] {
			t.Errorf("settlement %d: expected %q, got %q", i, wantLines[i], s.Formatted)
		}
		if math.Abs(s.Amount-30) > 0.001 {
			t.Errorf("settlement %d: expected amount 30, got %v", i, s.Amount)
		}
	}

	if recorder.observed != 1 || recorder.settlements != 2 {
		t.Errorf("expected one observation with 2 settlements, got %d/%d", recorder.observed, recorder.settlements)
	}
}

func TestGetGroupBalances_PreferredCurrency(t *testing.T) {
	client, _ := setupGroupTestServer(t)
	ctx := context.Background()

	group := createTestGroup(t, client, "USD",
		&api.MemberInput{Name: "Alice"},
		&api.MemberInput{Name: "Bob", PreferredCurrency: "EUR"},
	)
	ids := memberIDs(group)

	_, err := client.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		GroupID:      group.ID,
		Description:  "Hotel",
		Amount:       100,
		Currency:     "EUR",
		PaidBy:       ids["Alice"],
		Participants: []string{ids["Alice"], ids["Bob"]},
		SplitMethod:  "equal",
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	resp, err := client.GetGroupBalances(ctx, connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}

	table := currency.DefaultTable()
	wantUSD, err := table.Convert(50, "EUR", "USD")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	var bob *api.MemberBalance
	for _, b := range resp.Msg.Balances {
		if b.Member.Name == "Bob" {
			bob = b
		}
	}
	if bob == nil {
		t.Fatal("expected a balance for Bob")
	}
	if len(bob.Currencies) != 1 || bob.Currencies[0].Currency != "EUR" {
		t.Fatalf("expected a single EUR balance, got %+v", bob.Currencies)
	}
	if math.Abs(bob.Currencies[0].Net+50) > 0.001 {
		t.Errorf("expected EUR net -50, got %v", bob.Currencies[0].Net)
	}
	if math.Abs(bob.TotalInPreferredCurrency+50) > 0.001 {
		t.Errorf("expected -50 in preferred currency, got %v", bob.TotalInPreferredCurrency)
	}
	if math.Abs(bob.TotalInBaseCurrency+wantUSD) > 0.001 {
		t.Errorf("expected %v in base currency, got %v", -wantUSD, bob.TotalInBaseCurrency)
	}
	if bob.FormattedTotal != "€50.00" {
		t.Errorf("expected formatted total €50.00, got %q", bob.FormattedTotal)
	}

	if len(resp.Msg.Settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(resp.Msg.Settlements))
	}
	s := resp.Msg.Settlements[0]
	if s.Currency != "USD" || s.PreferredCurrency != "EUR" {
		t.Errorf("expected USD settlement shown in EUR, got %s/%s", s.Currency, s.PreferredCurrency)
	}
	if math.Abs(s.AmountInPreferredCurrency-50) > 0.001 {
		t.Errorf("expected 50 EUR, got %v", s.AmountInPreferredCurrency)
	}
	if !strings.HasPrefix(s.Formatted, "Bob pays Alice $") || !strings.HasSuffix(s.Formatted, "(€50.00)") {
		t.Errorf("unexpected settlement line %q", s.Formatted)
	}
}

func TestGetGroupBalances_NotFound(t *testing.T) {
	client, recorder := setupGroupTestServer(t)

	_, err := client.GetGroupBalances(context.Background(), connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: "missing"}))
	assertCode(t, err, connect.CodeNotFound)
	if recorder.observed != 0 {
		t.Errorf("expected no observation for a failed lookup, got %d", recorder.observed)
	}
}

func TestListCurrencies(t *testing.T) {
	client, _ := setupGroupTestServer(t)
	ctx := context.Background()

	all, err := client.ListCurrencies(ctx, connect.NewRequest(&api.ListCurrenciesRequest{}))
	if err != nil {
		t.Fatalf("ListCurrencies failed: %v", err)
	}
	crypto, err := client.ListCurrencies(ctx, connect.NewRequest(&api.ListCurrenciesRequest{Kind: "crypto"}))
	if err != nil {
		t.Fatalf("ListCurrencies failed: %v", err)
	}

	if len(all.Msg.Currencies) != len(currency.DefaultTable().Currencies("")) {
		t.Errorf("expected every currency, got %d", len(all.Msg.Currencies))
	}
	for _, c := range crypto.Msg.Currencies {
		if c.Kind != "crypto" {
			t.Errorf("expected only crypto, got %s (%s)", c.Code, c.Kind)
		}
	}
	if all.Msg.RatesUpdatedAt != 0 {
		t.Errorf("expected zero timestamp for built-in rates, got %d", all.Msg.RatesUpdatedAt)
	}

	_, err = client.ListCurrencies(ctx, connect.NewRequest(&api.ListCurrenciesRequest{Kind: "metal"}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestConvert(t *testing.T) {
	client, _ := setupGroupTestServer(t)
	ctx := context.Background()

	resp, err := client.Convert(ctx, connect.NewRequest(&api.ConvertRequest{Amount: 100, From: "USD", To: "USD"}))
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if resp.Msg.Amount != 100 || resp.Msg.Formatted != "$100.00" {
		t.Errorf("expected identity conversion, got %v %q", resp.Msg.Amount, resp.Msg.Formatted)
	}

	want, _ := currency.DefaultTable().Convert(100, "EUR", "GBP")
	resp, err = client.Convert(ctx, connect.NewRequest(&api.ConvertRequest{Amount: 100, From: "EUR", To: "GBP"}))
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if math.Abs(resp.Msg.Amount-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, resp.Msg.Amount)
	}

	_, err = client.Convert(ctx, connect.NewRequest(&api.ConvertRequest{Amount: 1, From: "USD", To: "XYZ"}))
	assertCode(t, err, connect.CodeInvalidArgument)
}
