package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
)

func createGroup(t *testing.T, env *testEnv, owner string, members ...string) *api.Group {
	t.Helper()
	resp, err := env.groups.CreateGroup(context.Background(), as(t, env, owner, &api.CreateGroupRequest{
		Name:    "Roommates",
		Members: members,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

func TestCreateGroup(t *testing.T) {
	env := setupTestServer(t)

	group := createGroup(t, env, "alice", "bob", "carol", "bob")

	if group.ID == "" {
		t.Error("expected non-empty group ID")
	}
	if group.Name != "Roommates" {
		t.Errorf("name: expected 'Roommates', got '%s'", group.Name)
	}
	// Creator first, duplicates dropped.
	want := []string{"alice", "bob", "carol"}
	if len(group.Members) != len(want) {
		t.Fatalf("members: expected %v, got %v", want, group.Members)
	}
	for i := range want {
		if group.Members[i] != want[i] {
			t.Errorf("members[%d]: expected %s, got %s", i, want[i], group.Members[i])
		}
	}
	if group.CreatedAt.IsZero() {
		t.Error("expected non-zero CreatedAt")
	}

	_, err := env.groups.CreateGroup(context.Background(), as(t, env, "alice", &api.CreateGroupRequest{}))
	expectError(t, err, connect.CodeInvalidArgument, ledger.ReasonInvalidInput)
}

func TestGetGroup(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, env, "diana", "eve")

	resp, err := env.groups.GetGroup(ctx, as(t, env, "eve", &api.GetGroupRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if resp.Msg.Group.ID != group.ID {
		t.Errorf("ID: expected '%s', got '%s'", group.ID, resp.Msg.Group.ID)
	}

	_, err = env.groups.GetGroup(ctx, as(t, env, "mallory", &api.GetGroupRequest{GroupID: group.ID}))
	expectError(t, err, connect.CodePermissionDenied, ledger.ReasonForbidden)

	_, err = env.groups.GetGroup(ctx, as(t, env, "eve", &api.GetGroupRequest{GroupID: "grp_nope"}))
	expectError(t, err, connect.CodeInvalidArgument, ledger.ReasonInvalidInput)

	_, err = env.groups.GetGroup(ctx, as(t, env, "eve", &api.GetGroupRequest{GroupID: models.NewID(models.PrefixGroup)}))
	expectError(t, err, connect.CodeNotFound, ledger.ReasonNotFound)
}

func TestAddGroupMembers(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, env, "alice", "bob")

	resp, err := env.groups.AddGroupMembers(ctx, as(t, env, "bob", &api.AddGroupMembersRequest{
		GroupID: group.ID,
		Members: []string{"carol", "alice"},
	}))
	if err != nil {
		t.Fatalf("AddGroupMembers failed: %v", err)
	}
	if len(resp.Msg.Group.Members) != 3 {
		t.Errorf("members: expected 3, got %v", resp.Msg.Group.Members)
	}

	_, err = env.groups.AddGroupMembers(ctx, as(t, env, "mallory", &api.AddGroupMembersRequest{
		GroupID: group.ID,
		Members: []string{"mallory"},
	}))
	expectError(t, err, connect.CodePermissionDenied, ledger.ReasonForbidden)

	var feed []*api.Activity
	waitFor(t, func() bool {
		list, err := env.activity.ListActivities(ctx, as(t, env, "carol", &api.ListActivitiesRequest{}))
		if err != nil {
			t.Fatalf("ListActivities failed: %v", err)
		}
		feed = list.Msg.Activities
		return len(feed) == 1
	})
	if feed[0].Action != "added_to_group" {
		t.Errorf("action: expected added_to_group, got %s", feed[0].Action)
	}
}

func TestGroupExpensesAndSettlement(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, env, "alice", "bob", "carol")

	// Alice pays 30 for all three, then carol pays 15 for bob and herself.
	for _, req := range []struct {
		payer string
		total string
		who   []string
	}{
		{"alice", "30.00", []string{"alice", "bob", "carol"}},
		{"carol", "15.00", []string{"carol", "bob"}},
	} {
		_, err := env.ledger.RecordExpense(ctx, as(t, env, req.payer, &api.RecordExpenseRequest{
			Description:  "Groceries",
			TotalAmount:  req.total,
			GroupID:      group.ID,
			Participants: req.who,
		}))
		if err != nil {
			t.Fatalf("RecordExpense failed: %v", err)
		}
	}

	_, err := env.ledger.RecordExpense(ctx, as(t, env, "alice", &api.RecordExpenseRequest{
		TotalAmount:  "10.00",
		GroupID:      group.ID,
		Participants: []string{"alice", "mallory"},
	}))
	expectError(t, err, connect.CodeInvalidArgument, ledger.ReasonInvalidInput)

	balances, err := env.ledger.GetGroupBalances(ctx, as(t, env, "bob", &api.GetGroupBalancesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	net := make(map[string]string)
	for _, b := range balances.Msg.MemberBalances {
		net[b.MemberID] = b.NetBalance
	}
	if net["alice"] != "20.00" || net["bob"] != "-17.50" || net["carol"] != "-2.50" {
		t.Errorf("unexpected net balances %v", net)
	}
	if len(balances.Msg.Transfers) == 0 {
		t.Error("expected suggested transfers")
	}

	// Bob's 12 goes to alice's expense first (10), then 2 of carol's 7.50.
	resp, err := env.ledger.RecordSettlement(ctx, as(t, env, "bob", &api.RecordSettlementRequest{
		GroupID: group.ID,
		Amount:  "12.00",
	}))
	if err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}
	changes := resp.Msg.Changes
	if len(changes) != 2 {
		t.Fatalf("changes: expected 2, got %d", len(changes))
	}
	if !changes[0].Removed || changes[0].Creditor != "alice" || changes[0].Paid != "10.00" {
		t.Errorf("first change: %+v", changes[0])
	}
	if changes[1].Removed || changes[1].Creditor != "carol" || changes[1].After != "5.50" {
		t.Errorf("second change: %+v", changes[1])
	}

	_, err = env.ledger.RecordSettlement(ctx, as(t, env, "bob", &api.RecordSettlementRequest{
		GroupID: group.ID,
		Amount:  "6.00",
	}))
	expectError(t, err, connect.CodeFailedPrecondition, ledger.ReasonOverpayment)

	// Any member other than the payer may verify a group settlement.
	verified, err := env.ledger.VerifySettlement(ctx, as(t, env, "carol", &api.VerifySettlementRequest{
		SettlementID: resp.Msg.Settlement.ID,
	}))
	if err != nil {
		t.Fatalf("VerifySettlement failed: %v", err)
	}
	if !verified.Msg.Settlement.Verified {
		t.Error("expected verified settlement")
	}

	expenses, err := env.ledger.ListGroupExpenses(ctx, as(t, env, "alice", &api.ListGroupExpensesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListGroupExpenses failed: %v", err)
	}
	if len(expenses.Msg.Expenses) != 2 {
		t.Fatalf("expenses: expected 2, got %d", len(expenses.Msg.Expenses))
	}
	if n := len(expenses.Msg.Expenses[0].Obligations); n != 1 {
		t.Errorf("alice's expense should only have carol's obligation left, got %d", n)
	}

	_, err = env.ledger.ListGroupExpenses(ctx, as(t, env, "mallory", &api.ListGroupExpensesRequest{GroupID: group.ID}))
	expectError(t, err, connect.CodePermissionDenied, ledger.ReasonForbidden)
}
