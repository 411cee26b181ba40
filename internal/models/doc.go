// Package models defines the core domain models for the ledger.
//
// # Models
//
//   - Expense: a payment made by one user on behalf of several participants
//   - Obligation: one participant's outstanding share of an expense
//   - BalanceEdge: the single netted debt between two users
//   - Settlement: a recorded payment that reduced an edge or group obligations
//   - Activity: a notification persisted for a user's activity feed
//   - Group: a participant list that owns group expenses
//
// # Design Principles
//
//  1. **Fixed point money**: every amount is a shopspring decimal with at most two
//     fractional digits. Nothing in this package uses float64 for money.
//  2. **IDs as strings**: relationships use prefixed TypeIDs, never pointers.
//  3. **Users are external**: a user is an opaque string ID owned by the identity
//     provider. The ledger never stores profiles.
//
// # Personal vs group expenses
//
// An expense without a GroupID is personal. Its obligations are folded into
// the pairwise BalanceEdge graph. An expense with a GroupID keeps its
// obligations open until they are consumed by a group settlement.
package models
