// Package models holds the wire-facing types shared between the daemon and
// its RPC clients.
package models

// AccountStatus is a point-in-time view of one account's sequence bookkeeping.
type AccountStatus struct {
	Address     string `json:"address"`
	Initialized bool   `json:"initialized"`
	Confirmed   uint64 `json:"confirmed"`
	Next        uint64 `json:"next"`
	InFlight    uint64 `json:"in_flight"`
}

// Allocation is the result of handing out one sequence number.
type Allocation struct {
	Address string `json:"address"`
	Seq     uint64 `json:"seq"`
}

// SyncResult reports where the synchronization barrier settled.
type SyncResult struct {
	Address   string `json:"address"`
	Confirmed uint64 `json:"confirmed"`
}

// DerivedAccount is the address derived from a caller-supplied mnemonic.
type DerivedAccount struct {
	Address string `json:"address"`
}
