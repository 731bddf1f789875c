package ratelimiter

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const evictEvery = 256

// Keyed applies a token bucket per string key (an RPC client address, an
// account) and evicts idle entries as a side effect of regular use.
type Keyed struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu    sync.Mutex
	byKey map[string]*bucket
	hits  uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New returns a keyed limiter, or nil (which allows everything) when the
// arguments disable limiting.
func New(rps float64, burst int, idleTTL time.Duration) *Keyed {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Keyed{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		byKey:   make(map[string]*bucket),
	}
}

// Allow reports whether one token can be consumed for the key at now. A nil
// limiter and a blank key always allow.
func (k *Keyed) Allow(key string, now time.Time) bool {
	if k == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	b, ok := k.byKey[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.byKey[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	k.hits++
	if k.hits%evictEvery == 0 {
		cutoff := now.Add(-k.idleTTL)
		for key, b := range k.byKey {
			if b.lastSeen.Before(cutoff) {
				delete(k.byKey, key)
			}
		}
	}
	return allowed
}

// Len reports the number of tracked keys.
func (k *Keyed) Len() int {
	if k == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.byKey)
}
