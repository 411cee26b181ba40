// Package ledger implements the split and settlement engine.
//
// The Engine composes four parts:
//
//   - calculator.Compute turns an expense total into per-user shares
//   - BalanceLedger keeps one netted edge per pair of users
//   - SettlementAllocator applies payments to an edge or to a group's
//     obligations, oldest expense first
//   - the verification workflow lets the counterparty acknowledge a payment
//
// Every mutating call validates its input first, then takes the pair or group
// lock keys it touches, runs a single store transaction and releases the keys.
// Notifications go out after commit and can never fail a ledger operation.
package ledger
