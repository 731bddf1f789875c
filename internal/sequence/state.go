package sequence

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMaxInFlightRequired  = errors.New("maxInFlight must be positive")
	ErrPollIntervalRequired = errors.New("pollInterval must be positive")
	ErrMaxWaitRequired      = errors.New("maxWait must be positive")
)

// Config bounds one allocator instance. Immutable after construction.
type Config struct {
	// MaxInFlight is the maximum gap between the next local number and the
	// last confirmed number before allocation blocks on reconciliation.
	MaxInFlight uint64
	// PollInterval is the wait between reconciliation polls.
	PollInterval time.Duration
	// MaxWait is the elapsed-time budget for a stalled reconciliation before
	// the allocator discards in-flight bookkeeping and reinitializes.
	MaxWait time.Duration
}

func (c Config) Validate() error {
	if c.MaxInFlight == 0 {
		return ErrMaxInFlightRequired
	}
	if c.PollInterval <= 0 {
		return ErrPollIntervalRequired
	}
	if c.MaxWait <= 0 {
		return ErrMaxWaitRequired
	}
	return nil
}

// accountState is the per-account bookkeeping. Uninitialized until the first
// successful fetch; after that confirmed <= next holds after every completed
// operation.
type accountState struct {
	initialized bool
	confirmed   uint64
	next        uint64
}

func (s accountState) inFlight() uint64 {
	return s.next - s.confirmed
}

// Snapshot is a point-in-time copy of the allocator state for status reporting.
type Snapshot struct {
	Initialized bool
	Confirmed   uint64
	Next        uint64
	InFlight    uint64
}

func (s Snapshot) String() string {
	if !s.Initialized {
		return "uninitialized"
	}
	return fmt.Sprintf("confirmed=%d next=%d in_flight=%d", s.Confirmed, s.Next, s.InFlight)
}
