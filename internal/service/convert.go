package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/money"
)

func toAPIExpense(exp *models.Expense) *api.Expense {
	obligations := make([]*api.Obligation, len(exp.Obligations))
	for i, o := range exp.Obligations {
		obligations[i] = &api.Obligation{
			ID:        o.ID,
			ExpenseID: o.ExpenseID,
			OwedBy:    o.OwedBy,
			Creditor:  o.Creditor,
			Amount:    money.Format(o.Amount),
		}
	}
	return &api.Expense{
		ID:          exp.ID,
		Description: exp.Description,
		Category:    exp.Category,
		TotalAmount: money.Format(exp.TotalAmount),
		Payer:       exp.Payer,
		GroupID:     exp.GroupID,
		Strategy:    string(exp.Strategy),
		PayerShare:  money.Format(exp.PayerShare),
		Obligations: obligations,
		CreatedAt:   exp.CreatedAt,
	}
}

func toAPIEdge(edge *models.BalanceEdge) *api.BalanceEdge {
	if edge == nil {
		return nil
	}
	return &api.BalanceEdge{
		Debtor:   edge.Debtor,
		Creditor: edge.Creditor,
		Amount:   money.Format(edge.Amount),
	}
}

func toAPISettlement(st *models.Settlement) *api.Settlement {
	out := &api.Settlement{
		ID:           st.ID,
		Kind:         string(st.Kind),
		Payer:        st.Payer,
		Counterparty: st.Counterparty,
		GroupID:      st.GroupID,
		Amount:       money.Format(st.Amount),
		Note:         st.Note,
		Verified:     st.Verified,
		VerifiedBy:   st.VerifiedBy,
		CreatedAt:    st.CreatedAt,
	}
	if st.Verified {
		at := st.VerifiedAt
		out.VerifiedAt = &at
	}
	return out
}

func toAPIChanges(changes []ledger.ObligationChange) []*api.ObligationChange {
	out := make([]*api.ObligationChange, len(changes))
	for i, c := range changes {
		out[i] = &api.ObligationChange{
			ObligationID: c.ObligationID,
			ExpenseID:    c.ExpenseID,
			Creditor:     c.Creditor,
			Before:       money.Format(c.Before),
			After:        money.Format(c.After),
			Paid:         money.Format(c.Paid()),
			Removed:      c.Removed,
		}
	}
	return out
}

func toAPIGroup(g *models.Group) *api.Group {
	return &api.Group{
		ID:        g.ID,
		Name:      g.Name,
		Members:   g.Members,
		CreatedAt: g.CreatedAt,
	}
}

func toAPIActivity(a *models.Activity) *api.Activity {
	return &api.Activity{
		ID:          a.ID,
		Action:      a.Action,
		Description: a.Description,
		Read:        a.Read,
		CreatedAt:   a.CreatedAt,
	}
}

// splitParams parses the per-participant split inputs. Percentages may carry
// more than two fractional digits; amounts and adjustments may not.
func splitParams(req *api.RecordExpenseRequest) (calculator.Params, error) {
	var (
		params calculator.Params
		err    error
	)
	if params.Amounts, err = parseAmounts(req.Amounts, money.Parse); err != nil {
		return params, fmt.Errorf("amounts: %w", err)
	}
	if params.Percentages, err = parseAmounts(req.Percentages, money.ParsePercent); err != nil {
		return params, fmt.Errorf("percentages: %w", err)
	}
	if params.Adjustments, err = parseAmounts(req.Adjustments, money.Parse); err != nil {
		return params, fmt.Errorf("adjustments: %w", err)
	}
	return params, nil
}

func parseAmounts(in map[string]string, parse func(string) (decimal.Decimal, error)) (map[string]decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]decimal.Decimal, len(in))
	for user, raw := range in {
		d, err := parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", user, err)
		}
		out[user] = d
	}
	return out, nil
}
