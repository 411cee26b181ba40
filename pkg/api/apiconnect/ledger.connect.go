package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/api"
)

// LedgerServiceName is the fully-qualified name of the LedgerService service.
const LedgerServiceName = "splitledger.v1.LedgerService"

// Procedure paths of LedgerService.
const (
	LedgerServiceRecordExpenseProcedure     = "/splitledger.v1.LedgerService/RecordExpense"
	LedgerServiceDeleteExpenseProcedure     = "/splitledger.v1.LedgerService/DeleteExpense"
	LedgerServiceUpdateExpenseProcedure     = "/splitledger.v1.LedgerService/UpdateExpense"
	LedgerServiceRecordSettlementProcedure  = "/splitledger.v1.LedgerService/RecordSettlement"
	LedgerServiceVerifySettlementProcedure  = "/splitledger.v1.LedgerService/VerifySettlement"
	LedgerServiceGetBalanceProcedure        = "/splitledger.v1.LedgerService/GetBalance"
	LedgerServiceGetBalanceSummaryProcedure = "/splitledger.v1.LedgerService/GetBalanceSummary"
	LedgerServiceSettleAllProcedure         = "/splitledger.v1.LedgerService/SettleAll"
	LedgerServiceListGroupExpensesProcedure = "/splitledger.v1.LedgerService/ListGroupExpenses"
	LedgerServiceListUserExpensesProcedure  = "/splitledger.v1.LedgerService/ListUserExpenses"
	LedgerServiceGetGroupBalancesProcedure  = "/splitledger.v1.LedgerService/GetGroupBalances"
)

// LedgerServiceClient is a client for the splitledger.v1.LedgerService service.
type LedgerServiceClient interface {
	RecordExpense(context.Context, *connect.Request[api.RecordExpenseRequest]) (*connect.Response[api.RecordExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error)
	RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error)
	VerifySettlement(context.Context, *connect.Request[api.VerifySettlementRequest]) (*connect.Response[api.VerifySettlementResponse], error)
	GetBalance(context.Context, *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error)
	GetBalanceSummary(context.Context, *connect.Request[api.GetBalanceSummaryRequest]) (*connect.Response[api.GetBalanceSummaryResponse], error)
	SettleAll(context.Context, *connect.Request[api.SettleAllRequest]) (*connect.Response[api.SettleAllResponse], error)
	ListGroupExpenses(context.Context, *connect.Request[api.ListGroupExpensesRequest]) (*connect.Response[api.ListGroupExpensesResponse], error)
	ListUserExpenses(context.Context, *connect.Request[api.ListUserExpensesRequest]) (*connect.Response[api.ListUserExpensesResponse], error)
	GetGroupBalances(context.Context, *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error)
}

// NewLedgerServiceClient constructs a client for the splitledger.v1.LedgerService
// service. baseURL is the server root, e.g. http://localhost:8080.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &ledgerServiceClient{
		recordExpense:     connect.NewClient[api.RecordExpenseRequest, api.RecordExpenseResponse](httpClient, baseURL+LedgerServiceRecordExpenseProcedure, opts...),
		deleteExpense:     connect.NewClient[api.DeleteExpenseRequest, api.DeleteExpenseResponse](httpClient, baseURL+LedgerServiceDeleteExpenseProcedure, opts...),
		updateExpense:     connect.NewClient[api.UpdateExpenseRequest, api.UpdateExpenseResponse](httpClient, baseURL+LedgerServiceUpdateExpenseProcedure, opts...),
		recordSettlement:  connect.NewClient[api.RecordSettlementRequest, api.RecordSettlementResponse](httpClient, baseURL+LedgerServiceRecordSettlementProcedure, opts...),
		verifySettlement:  connect.NewClient[api.VerifySettlementRequest, api.VerifySettlementResponse](httpClient, baseURL+LedgerServiceVerifySettlementProcedure, opts...),
		getBalance:        connect.NewClient[api.GetBalanceRequest, api.GetBalanceResponse](httpClient, baseURL+LedgerServiceGetBalanceProcedure, opts...),
		getBalanceSummary: connect.NewClient[api.GetBalanceSummaryRequest, api.GetBalanceSummaryResponse](httpClient, baseURL+LedgerServiceGetBalanceSummaryProcedure, opts...),
		settleAll:         connect.NewClient[api.SettleAllRequest, api.SettleAllResponse](httpClient, baseURL+LedgerServiceSettleAllProcedure, opts...),
		listGroupExpenses: connect.NewClient[api.ListGroupExpensesRequest, api.ListGroupExpensesResponse](httpClient, baseURL+LedgerServiceListGroupExpensesProcedure, opts...),
		listUserExpenses:  connect.NewClient[api.ListUserExpensesRequest, api.ListUserExpensesResponse](httpClient, baseURL+LedgerServiceListUserExpensesProcedure, opts...),
		getGroupBalances:  connect.NewClient[api.GetGroupBalancesRequest, api.GetGroupBalancesResponse](httpClient, baseURL+LedgerServiceGetGroupBalancesProcedure, opts...),
	}
}

type ledgerServiceClient struct {
	recordExpense     *connect.Client[api.RecordExpenseRequest, api.RecordExpenseResponse]
	deleteExpense     *connect.Client[api.DeleteExpenseRequest, api.DeleteExpenseResponse]
	updateExpense     *connect.Client[api.UpdateExpenseRequest, api.UpdateExpenseResponse]
	recordSettlement  *connect.Client[api.RecordSettlementRequest, api.RecordSettlementResponse]
	verifySettlement  *connect.Client[api.VerifySettlementRequest, api.VerifySettlementResponse]
	getBalance        *connect.Client[api.GetBalanceRequest, api.GetBalanceResponse]
	getBalanceSummary *connect.Client[api.GetBalanceSummaryRequest, api.GetBalanceSummaryResponse]
	settleAll         *connect.Client[api.SettleAllRequest, api.SettleAllResponse]
	listGroupExpenses *connect.Client[api.ListGroupExpensesRequest, api.ListGroupExpensesResponse]
	listUserExpenses  *connect.Client[api.ListUserExpensesRequest, api.ListUserExpensesResponse]
	getGroupBalances  *connect.Client[api.GetGroupBalancesRequest, api.GetGroupBalancesResponse]
}

func (c *ledgerServiceClient) RecordExpense(ctx context.Context, req *connect.Request[api.RecordExpenseRequest]) (*connect.Response[api.RecordExpenseResponse], error) {
	return c.recordExpense.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	return c.updateExpense.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) VerifySettlement(ctx context.Context, req *connect.Request[api.VerifySettlementRequest]) (*connect.Response[api.VerifySettlementResponse], error) {
	return c.verifySettlement.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetBalance(ctx context.Context, req *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error) {
	return c.getBalance.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetBalanceSummary(ctx context.Context, req *connect.Request[api.GetBalanceSummaryRequest]) (*connect.Response[api.GetBalanceSummaryResponse], error) {
	return c.getBalanceSummary.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) SettleAll(ctx context.Context, req *connect.Request[api.SettleAllRequest]) (*connect.Response[api.SettleAllResponse], error) {
	return c.settleAll.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ListGroupExpenses(ctx context.Context, req *connect.Request[api.ListGroupExpensesRequest]) (*connect.Response[api.ListGroupExpensesResponse], error) {
	return c.listGroupExpenses.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ListUserExpenses(ctx context.Context, req *connect.Request[api.ListUserExpensesRequest]) (*connect.Response[api.ListUserExpensesResponse], error) {
	return c.listUserExpenses.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

// LedgerServiceHandler is implemented by the server side of
// splitledger.v1.LedgerService.
type LedgerServiceHandler interface {
	RecordExpense(context.Context, *connect.Request[api.RecordExpenseRequest]) (*connect.Response[api.RecordExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error)
	RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error)
	VerifySettlement(context.Context, *connect.Request[api.VerifySettlementRequest]) (*connect.Response[api.VerifySettlementResponse], error)
	GetBalance(context.Context, *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error)
	GetBalanceSummary(context.Context, *connect.Request[api.GetBalanceSummaryRequest]) (*connect.Response[api.GetBalanceSummaryResponse], error)
	SettleAll(context.Context, *connect.Request[api.SettleAllRequest]) (*connect.Response[api.SettleAllResponse], error)
	ListGroupExpenses(context.Context, *connect.Request[api.ListGroupExpensesRequest]) (*connect.Response[api.ListGroupExpensesResponse], error)
	ListUserExpenses(context.Context, *connect.Request[api.ListUserExpensesRequest]) (*connect.Response[api.ListUserExpensesResponse], error)
	GetGroupBalances(context.Context, *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	handlers := map[string]http.Handler{
		LedgerServiceRecordExpenseProcedure:     connect.NewUnaryHandler(LedgerServiceRecordExpenseProcedure, svc.RecordExpense, opts...),
		LedgerServiceDeleteExpenseProcedure:     connect.NewUnaryHandler(LedgerServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...),
		LedgerServiceUpdateExpenseProcedure:     connect.NewUnaryHandler(LedgerServiceUpdateExpenseProcedure, svc.UpdateExpense, opts...),
		LedgerServiceRecordSettlementProcedure:  connect.NewUnaryHandler(LedgerServiceRecordSettlementProcedure, svc.RecordSettlement, opts...),
		LedgerServiceVerifySettlementProcedure:  connect.NewUnaryHandler(LedgerServiceVerifySettlementProcedure, svc.VerifySettlement, opts...),
		LedgerServiceGetBalanceProcedure:        connect.NewUnaryHandler(LedgerServiceGetBalanceProcedure, svc.GetBalance, opts...),
		LedgerServiceGetBalanceSummaryProcedure: connect.NewUnaryHandler(LedgerServiceGetBalanceSummaryProcedure, svc.GetBalanceSummary, opts...),
		LedgerServiceSettleAllProcedure:         connect.NewUnaryHandler(LedgerServiceSettleAllProcedure, svc.SettleAll, opts...),
		LedgerServiceListGroupExpensesProcedure: connect.NewUnaryHandler(LedgerServiceListGroupExpensesProcedure, svc.ListGroupExpenses, opts...),
		LedgerServiceListUserExpensesProcedure:  connect.NewUnaryHandler(LedgerServiceListUserExpensesProcedure, svc.ListUserExpenses, opts...),
		LedgerServiceGetGroupBalancesProcedure:  connect.NewUnaryHandler(LedgerServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...),
	}
	return "/" + LedgerServiceName + "/", route(handlers)
}

func route(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
