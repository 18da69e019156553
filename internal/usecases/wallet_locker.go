package usecases

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// walletLocker serializes movements touching the same wallet inside this
// process. Locks are always taken in ascending id order.
type walletLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*walletLock
}

type walletLock struct {
	mu   sync.Mutex
	refs int
}

func newWalletLocker() *walletLocker {
	return &walletLocker{locks: make(map[uuid.UUID]*walletLock)}
}

// Lock acquires every id (duplicates and uuid.Nil ignored) and returns the release func
func (l *walletLocker) Lock(ids ...uuid.UUID) func() {
	ordered := sortedWalletIDs(ids...)

	held := make([]*walletLock, 0, len(ordered))
	for _, id := range ordered {
		wl := l.acquire(id)
		wl.mu.Lock()
		held = append(held, wl)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(ordered[i])
		}
	}
}

func (l *walletLocker) acquire(id uuid.UUID) *walletLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	wl, ok := l.locks[id]
	if !ok {
		wl = &walletLock{}
		l.locks[id] = wl
	}
	wl.refs++
	return wl
}

func (l *walletLocker) release(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	wl, ok := l.locks[id]
	if !ok {
		return
	}
	wl.refs--
	if wl.refs == 0 {
		delete(l.locks, id)
	}
}

// sortedWalletIDs dedups ids and orders them the way rows must be locked
func sortedWalletIDs(ids ...uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
