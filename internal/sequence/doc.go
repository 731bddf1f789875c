// Package sequence owns per-account sequence-number allocation against an
// eventually consistent remote ledger.
//
// Responsibilities:
// - Serialize concurrent allocation requests behind a per-account guard.
// - Bound the count of allocated-but-unconfirmed numbers (the in-flight
//   window) and reconcile it by polling the remote confirmed value.
// - Recover from stalled reconciliation by forced reinitialization, which
//   discards in-flight bookkeeping and restarts from the remote value.
//
// Non-responsibilities:
// - Building, signing, or submitting the operations the numbers are for.
// - Detecting or retrying failures of already submitted operations.
package sequence
