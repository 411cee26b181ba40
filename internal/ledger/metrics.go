package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	expensesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_expenses_recorded_total",
		Help: "Expenses recorded, by kind (personal or group).",
	}, []string{"kind"})

	expensesDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_expenses_deleted_total",
		Help: "Expenses deleted, by kind (personal or group).",
	}, []string{"kind"})

	settlementsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_settlements_recorded_total",
		Help: "Settlements recorded, by kind (pairwise or group).",
	}, []string{"kind"})

	settlementsVerified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_settlements_verified_total",
		Help: "Settlements moved from pending to verified.",
	})

	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operation_errors_total",
		Help: "Rejected ledger operations, by operation and reason.",
	}, []string{"operation", "reason"})

	lockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_lock_wait_seconds",
		Help:    "Time spent waiting for ledger lock keys.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	})
)

func expenseKind(personal bool) string {
	if personal {
		return "personal"
	}
	return "group"
}
