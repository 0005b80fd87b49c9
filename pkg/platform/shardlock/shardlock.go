// Package shardlock provides per-key mutual exclusion over a fixed number of
// mutex shards. Keys hashing to the same shard serialize; unrelated keys
// rarely contend.
package shardlock

import (
	"context"
	"sync"

	dErrors "askdata/pkg/domain-errors"
)

// DefaultShards is the shard count used when New is given n <= 0.
const DefaultShards = 128

// Locks is a set of sharded mutexes.
type Locks struct {
	shards []sync.Mutex
}

// New creates n shards.
func New(n int) *Locks {
	if n <= 0 {
		n = DefaultShards
	}
	return &Locks{shards: make([]sync.Mutex, n)}
}

// Do runs fn while holding the shard lock of key. The context is checked
// before and after acquiring the lock.
func (l *Locks) Do(ctx context.Context, key string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}
	mu := &l.shards[l.shard(key)]
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}
	return fn()
}

func (l *Locks) shard(key string) int {
	return int(fnv1a(key) % uint32(len(l.shards)))
}

func fnv1a(s string) uint32 {
	const (
		offset = 2166136261
		prime  = 16777619
	)
	h := uint32(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}
