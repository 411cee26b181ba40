// Package lock provides the key-based mutual exclusion that serializes
// conflicting ledger mutations.
//
// Every mutation of a pairwise balance edge holds PairKey(a, b); every group
// settlement holds GroupKey(g). Operations that need several keys acquire
// them in sorted order so two callers can never wait on each other.
package lock

import (
	"context"
	"errors"
	"sort"
)

// Locker acquires a set of keys as one unit.
type Locker interface {
	// Acquire blocks until every key is held, the wait budget runs out
	// (ErrTimeout) or ctx is done.
	Acquire(ctx context.Context, keys ...string) (Release, error)
}

var (
	_ Locker = (*KeyedMutex)(nil)
	_ Locker = (*RedisLocker)(nil)
)

// ErrTimeout is returned when the keys could not all be acquired within the
// locker's wait budget. Nothing is held when it is returned.
var ErrTimeout = errors.New("timed out waiting for lock")

// Release frees every key taken by one Acquire call. It is safe to call once.
type Release func()

// PairKey returns the lock key for the unordered pair {a, b}.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return "ledger:pair:" + a + ":" + b
}

// GroupKey returns the lock key guarding a group's obligations.
func GroupKey(groupID string) string {
	return "ledger:group:" + groupID
}

// normalize sorts keys and drops duplicates, giving every caller the same
// global acquisition order.
func normalize(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i > 0 && k == out[n-1] {
			continue
		}
		out[n] = k
		n++
	}
	return out[:n]
}
