package sequence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tessera-ledger/go-client/internal/metrics"
)

// Fetcher reports the latest sequence number the remote ledger has confirmed
// for an account. Implementations may be called concurrently.
type Fetcher interface {
	ConfirmedSeq(ctx context.Context, address string) (uint64, error)
}

// Allocator hands out unique, strictly increasing sequence numbers for one
// account while bounding the count of allocated-but-unconfirmed numbers.
//
// Exactly one Allocator may manage a given account at a time; two allocators
// over the same account produce inconsistent numbering and nothing here
// detects that.
type Allocator struct {
	address string
	cfg     Config
	fetcher Fetcher
	logger  *slog.Logger
	metrics *metrics.Set

	// guard serializes the bodies of Next and Sync. Acquisition order among
	// blocked callers is unspecified.
	guard chan struct{}

	// mu protects st for short reads and writes; long operations additionally
	// hold guard so their multi-step transitions stay atomic.
	mu sync.Mutex
	st accountState

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds an allocator for address. The fetcher is the only way the
// allocator learns remote state; it performs no fetch until the first Next or
// Sync call.
func New(address string, cfg Config, fetcher Fetcher, logger *slog.Logger, set *metrics.Set) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxWait < 3*cfg.PollInterval {
		logger.Warn("maxWait close to pollInterval; forced reinitializations may thrash",
			"component", "sequence",
			"address", address,
			"poll_interval", cfg.PollInterval,
			"max_wait", cfg.MaxWait)
	}
	return &Allocator{
		address: address,
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
		metrics: set,
		guard:   make(chan struct{}, 1),
		now:     func() time.Time { return time.Now().UTC() },
		sleep:   sleepCtx,
	}, nil
}

// Next returns the next sequence number for the account. Numbers from
// successful calls are strictly increasing by one, except across a forced
// reinitialization, which can reset the counter below previously issued
// values. When the in-flight window is full the call blocks until
// reconciliation makes room, ctx is cancelled, or a fetch fails during
// initialization or forced reinitialization.
func (a *Allocator) Next(ctx context.Context) (uint64, error) {
	if err := a.acquire(ctx); err != nil {
		return 0, err
	}
	defer a.release()

	if err := a.initLocked(ctx); err != nil {
		return 0, err
	}
	if err := a.waitForRoomLocked(ctx); err != nil {
		return 0, err
	}

	a.mu.Lock()
	seq := a.st.next
	a.st.next++
	gap := a.st.inFlight()
	a.mu.Unlock()

	a.metrics.RecordAllocation(gap)
	return seq, nil
}

// Sync blocks until every issued number has been confirmed by the remote
// ledger, or a forced reinitialization resets local and confirmed to the same
// value. Returns the confirmed sequence number it settled on.
func (a *Allocator) Sync(ctx context.Context) (uint64, error) {
	// Fast path: nothing outstanding, no guard needed.
	a.mu.Lock()
	if a.st.initialized && a.st.confirmed == a.st.next {
		confirmed := a.st.confirmed
		a.mu.Unlock()
		return confirmed, nil
	}
	a.mu.Unlock()

	if err := a.acquire(ctx); err != nil {
		return 0, err
	}
	defer a.release()

	a.metrics.RecordSync()

	if err := a.initLocked(ctx); err != nil {
		return 0, err
	}

	if err := a.updateLocked(ctx); err != nil {
		a.logFetchWarn("sync", err)
	}
	started := a.now()
	for {
		a.mu.Lock()
		caughtUp := a.st.confirmed == a.st.next
		confirmed := a.st.confirmed
		a.mu.Unlock()
		if caughtUp {
			return confirmed, nil
		}

		if err := a.sleep(ctx, a.cfg.PollInterval); err != nil {
			return 0, err
		}
		if a.now().Sub(started) > a.cfg.MaxWait {
			if err := a.reinitLocked(ctx); err != nil {
				return 0, err
			}
			started = a.now()
			continue
		}
		if err := a.updateLocked(ctx); err != nil {
			a.logFetchWarn("sync", err)
		}
	}
}

// Status reports the current bookkeeping without touching the guard.
func (a *Allocator) Status() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Initialized: a.st.initialized,
		Confirmed:   a.st.confirmed,
		Next:        a.st.next,
		InFlight:    a.st.inFlight(),
	}
}

// Address returns the account this allocator manages.
func (a *Allocator) Address() string {
	return a.address
}

func (a *Allocator) acquire(ctx context.Context) error {
	select {
	case a.guard <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Allocator) release() {
	<-a.guard
}

// initLocked performs the lazy first fetch. Caller holds the guard.
func (a *Allocator) initLocked(ctx context.Context) error {
	a.mu.Lock()
	initialized := a.st.initialized
	a.mu.Unlock()
	if initialized {
		return nil
	}
	return a.reinitLocked(ctx)
}

// updateLocked refreshes the confirmed number from the remote ledger. The
// next local number is untouched. Caller holds the guard.
func (a *Allocator) updateLocked(ctx context.Context) error {
	confirmed, err := a.fetcher.ConfirmedSeq(ctx, a.address)
	if err != nil {
		a.metrics.RecordFetchError()
		return err
	}
	a.mu.Lock()
	a.st.confirmed = confirmed
	a.mu.Unlock()
	return nil
}

// reinitLocked re-fetches the confirmed number and resets both counters to
// it, discarding all bookkeeping about allocated-but-unconfirmed numbers.
// This is deliberately lossy: pending operations either already landed (the
// fresh confirmed value reflects them) or the caller abandons them. Numbers
// issued before the reset can be issued again. Caller holds the guard.
func (a *Allocator) reinitLocked(ctx context.Context) error {
	confirmed, err := a.fetcher.ConfirmedSeq(ctx, a.address)
	if err != nil {
		a.metrics.RecordFetchError()
		return err
	}
	a.mu.Lock()
	wasInitialized := a.st.initialized
	dropped := uint64(0)
	if wasInitialized {
		dropped = a.st.inFlight()
	}
	a.st = accountState{initialized: true, confirmed: confirmed, next: confirmed}
	a.mu.Unlock()

	if wasInitialized {
		a.metrics.RecordForcedReinit()
		a.logger.Warn("forced reinitialization; in-flight bookkeeping discarded",
			"component", "sequence",
			"address", a.address,
			"confirmed", confirmed,
			"dropped_in_flight", dropped)
	}
	return nil
}

// waitForRoomLocked blocks while the in-flight window is full, polling the
// remote ledger every PollInterval. Once MaxWait elapses without room it
// forces a reinitialization instead of another update. Caller holds the
// guard.
func (a *Allocator) waitForRoomLocked(ctx context.Context) error {
	a.mu.Lock()
	full := a.st.inFlight() >= a.cfg.MaxInFlight
	a.mu.Unlock()
	if !full {
		return nil
	}

	started := a.now()
	defer func() {
		a.metrics.ObserveWindowWait(a.now().Sub(started))
	}()

	for {
		if err := a.sleep(ctx, a.cfg.PollInterval); err != nil {
			return err
		}
		if a.now().Sub(started) > a.cfg.MaxWait {
			if err := a.reinitLocked(ctx); err != nil {
				return err
			}
			started = a.now()
		} else if err := a.updateLocked(ctx); err != nil {
			// Recoverable: the stall budget still bounds this loop.
			a.logFetchWarn("allocate", err)
		}

		a.mu.Lock()
		full = a.st.inFlight() >= a.cfg.MaxInFlight
		a.mu.Unlock()
		if !full {
			return nil
		}
	}
}

func (a *Allocator) logFetchWarn(operation string, err error) {
	a.logger.Warn("confirmed sequence fetch failed",
		"component", "sequence",
		"operation", operation,
		"address", a.address,
		"error", err.Error())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
