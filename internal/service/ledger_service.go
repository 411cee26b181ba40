package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
	"github.com/mmynk/splitledger/pkg/money"
)

// LedgerService implements the Connect LedgerService on top of the ledger
// engine. The acting user is always the authenticated caller.
type LedgerService struct {
	engine *ledger.Engine
	logger *slog.Logger
}

var _ apiconnect.LedgerServiceHandler = (*LedgerService)(nil)

// NewLedgerService creates a LedgerService backed by engine.
func NewLedgerService(engine *ledger.Engine, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{engine: engine, logger: logger}
}

func caller(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errUnauthenticated)
	}
	return userID, nil
}

// RecordExpense records an expense paid by the caller.
func (s *LedgerService) RecordExpense(ctx context.Context, req *connect.Request[api.RecordExpenseRequest]) (*connect.Response[api.RecordExpenseResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("RecordExpense request received",
		"payer", userID,
		"group_id", req.Msg.GroupID,
		"total", req.Msg.TotalAmount,
		"participants_count", len(req.Msg.Participants),
	)

	total, err := money.ParsePositive(req.Msg.TotalAmount)
	if err != nil {
		return nil, invalidArgument("total_amount: %v", err)
	}
	if req.Msg.GroupID != "" {
		if err := requireID("group_id", req.Msg.GroupID, models.PrefixGroup); err != nil {
			return nil, err
		}
	}
	params, err := splitParams(req.Msg)
	if err != nil {
		return nil, invalidArgument("%v", err)
	}

	exp, err := s.engine.RecordExpense(ctx, ledger.ExpenseInput{
		Description:  req.Msg.Description,
		Category:     req.Msg.Category,
		TotalAmount:  total,
		Payer:        userID,
		GroupID:      req.Msg.GroupID,
		Participants: req.Msg.Participants,
		Strategy:     models.SplitStrategy(req.Msg.Strategy),
		Params:       params,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.RecordExpenseResponse{Expense: toAPIExpense(exp)}), nil
}

// DeleteExpense deletes one of the caller's expenses.
func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("DeleteExpense request received", "expense_id", req.Msg.ExpenseID, "user_id", userID)

	if err := requireID("expense_id", req.Msg.ExpenseID, models.PrefixExpense); err != nil {
		return nil, err
	}
	if err := s.engine.DeleteExpense(ctx, req.Msg.ExpenseID, userID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// UpdateExpense edits the description and category of one of the caller's expenses.
func (s *LedgerService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("UpdateExpense request received", "expense_id", req.Msg.ExpenseID, "user_id", userID)

	if err := requireID("expense_id", req.Msg.ExpenseID, models.PrefixExpense); err != nil {
		return nil, err
	}
	exp, err := s.engine.UpdateExpenseDetails(ctx, req.Msg.ExpenseID, userID, req.Msg.Description, req.Msg.Category)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.UpdateExpenseResponse{Expense: toAPIExpense(exp)}), nil
}

// RecordSettlement records a payment by the caller.
func (s *LedgerService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("RecordSettlement request received",
		"payer", userID,
		"counterparty", req.Msg.Counterparty,
		"group_id", req.Msg.GroupID,
		"amount", req.Msg.Amount,
	)

	if req.Msg.GroupID != "" {
		if err := requireID("group_id", req.Msg.GroupID, models.PrefixGroup); err != nil {
			return nil, err
		}
	}
	amount, err := money.ParsePositive(req.Msg.Amount)
	if err != nil {
		return nil, invalidArgument("amount: %v", err)
	}

	res, err := s.engine.RecordSettlement(ctx, ledger.SettlementInput{
		Payer:        userID,
		Counterparty: req.Msg.Counterparty,
		GroupID:      req.Msg.GroupID,
		Amount:       amount,
		Note:         req.Msg.Note,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.RecordSettlementResponse{
		Settlement: toAPISettlement(res.Settlement),
		Edge:       toAPIEdge(res.Edge),
		Changes:    toAPIChanges(res.Changes),
	}), nil
}

// VerifySettlement acknowledges a payment the caller received.
func (s *LedgerService) VerifySettlement(ctx context.Context, req *connect.Request[api.VerifySettlementRequest]) (*connect.Response[api.VerifySettlementResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("VerifySettlement request received", "settlement_id", req.Msg.SettlementID, "user_id", userID)

	if err := requireID("settlement_id", req.Msg.SettlementID, models.PrefixSettlement); err != nil {
		return nil, err
	}

	st, err := s.engine.VerifySettlement(ctx, req.Msg.SettlementID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.VerifySettlementResponse{Settlement: toAPISettlement(st)}), nil
}

// GetBalance returns the edge between the caller and another user.
func (s *LedgerService) GetBalance(ctx context.Context, req *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	edge, err := s.engine.Balance(ctx, userID, req.Msg.OtherUserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetBalanceResponse{Edge: toAPIEdge(edge)}), nil
}

// GetBalanceSummary totals the caller's balances.
func (s *LedgerService) GetBalanceSummary(ctx context.Context, _ *connect.Request[api.GetBalanceSummaryRequest]) (*connect.Response[api.GetBalanceSummaryResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.engine.Summary(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	friends := make([]*api.FriendBalance, len(summary.Friends))
	for i, f := range summary.Friends {
		friends[i] = &api.FriendBalance{FriendID: f.FriendID, Amount: money.Format(f.Amount)}
	}
	return connect.NewResponse(&api.GetBalanceSummaryResponse{
		TotalOwes:   money.Format(summary.TotalOwes),
		TotalOwedTo: money.Format(summary.TotalOwedTo),
		Friends:     friends,
	}), nil
}

// SettleAll pays off everything the caller owes.
func (s *LedgerService) SettleAll(ctx context.Context, _ *connect.Request[api.SettleAllRequest]) (*connect.Response[api.SettleAllResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("SettleAll request received", "user_id", userID)

	results, err := s.engine.SettleAll(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	settlements := make([]*api.Settlement, len(results))
	for i, r := range results {
		settlements[i] = toAPISettlement(r.Settlement)
	}
	s.logger.Info("SettleAll successful", "user_id", userID, "settlements", len(settlements))
	return connect.NewResponse(&api.SettleAllResponse{Settlements: settlements}), nil
}

// ListGroupExpenses lists a group's expenses for one of its members.
func (s *LedgerService) ListGroupExpenses(ctx context.Context, req *connect.Request[api.ListGroupExpensesRequest]) (*connect.Response[api.ListGroupExpensesResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireID("group_id", req.Msg.GroupID, models.PrefixGroup); err != nil {
		return nil, err
	}

	expenses, err := s.engine.GroupExpenses(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]*api.Expense, len(expenses))
	for i, exp := range expenses {
		out[i] = toAPIExpense(exp)
	}
	return connect.NewResponse(&api.ListGroupExpensesResponse{Expenses: out}), nil
}

// ListUserExpenses lists the expenses the caller paid for.
func (s *LedgerService) ListUserExpenses(ctx context.Context, req *connect.Request[api.ListUserExpensesRequest]) (*connect.Response[api.ListUserExpensesResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.engine.UserExpenses(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]*api.Expense, len(expenses))
	for i, exp := range expenses {
		out[i] = toAPIExpense(exp)
	}
	s.logger.Debug("ListUserExpenses", "user_id", userID, "count", len(out))
	return connect.NewResponse(&api.ListUserExpensesResponse{Expenses: out}), nil
}

// GetGroupBalances calculates the open balances of a group.
func (s *LedgerService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	groupID := req.Msg.GroupID
	s.logger.Info("GetGroupBalances request received", "group_id", groupID)

	if err := requireID("group_id", groupID, models.PrefixGroup); err != nil {
		return nil, err
	}

	balances, transfers, err := s.engine.GroupBalances(ctx, groupID, userID)
	if err != nil {
		s.logger.Error("GetGroupBalances failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	apiBalances := make([]*api.MemberBalance, len(balances))
	for i, bal := range balances {
		apiBalances[i] = &api.MemberBalance{
			MemberID:   bal.MemberID,
			NetBalance: money.Format(bal.NetBalance),
			TotalPaid:  money.Format(bal.TotalPaid),
			TotalOwed:  money.Format(bal.TotalOwed),
		}
	}

	apiTransfers := make([]*api.Transfer, len(transfers))
	for i, t := range transfers {
		apiTransfers[i] = &api.Transfer{From: t.From, To: t.To, Amount: money.Format(t.Amount)}
	}

	s.logger.Info("GetGroupBalances successful",
		"group_id", groupID,
		"members_count", len(balances),
		"transfers_count", len(transfers),
	)

	return connect.NewResponse(&api.GetGroupBalancesResponse{
		MemberBalances: apiBalances,
		Transfers:      apiTransfers,
	}), nil
}
