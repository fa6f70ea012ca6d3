package sync

import (
	"fmt"
	base "sync"

	"golang.org/x/exp/slices"
)

const (
	hashEntriesPerLock = 200
)

// StripedLock is a partitioned locking mechanism that consistently maps a key
// space to a set of locks. This provides concurrent data access while also
// limiting the total memory footprint.
type StripedLock struct {
	locks    []base.RWMutex
	hashRing *ring
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	ringEntries := make(map[string]interface{})
	for i := 0; i < int(stripes); i++ {
		ringEntries[fmt.Sprintf("lock%d", i)] = i
	}

	return &StripedLock{
		locks:    make([]base.RWMutex, stripes),
		hashRing: newRing(ringEntries, hashEntriesPerLock),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.stripe(key)]
}

// LockAll acquires the write locks for every provided key and returns a
// function that releases them.
//
// Stripes are deduplicated, since two keys can share one, and acquired in
// ascending stripe order so that concurrent callers locking overlapping key
// sets can't deadlock.
func (l *StripedLock) LockAll(keys ...[]byte) (unlock func()) {
	var stripes []int
	for _, key := range keys {
		stripe := l.stripe(key)
		if !slices.Contains(stripes, stripe) {
			stripes = append(stripes, stripe)
		}
	}
	slices.Sort(stripes)

	for _, stripe := range stripes {
		l.locks[stripe].Lock()
	}

	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			l.locks[stripes[i]].Unlock()
		}
	}
}

func (l *StripedLock) stripe(key []byte) int {
	return l.hashRing.shard(key).(int)
}
