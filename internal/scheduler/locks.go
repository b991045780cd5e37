package scheduler

import (
	"sort"
	"sync"
)

// LotLockManager provides a single writer per lot. A cascade result is only
// valid against the snapshot it was computed from, so callers hold the lot's
// lock from load through persist. Different lots proceed concurrently.
type LotLockManager struct {
	mu    sync.Mutex             // Guards the locks map itself
	locks map[string]*sync.Mutex // Per-lot mutexes
}

// NewLotLockManager creates a new LotLockManager.
func NewLotLockManager() *LotLockManager {
	return &LotLockManager{
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *LotLockManager) lotMutex(lotID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lotLock, exists := m.locks[lotID]
	if !exists {
		lotLock = &sync.Mutex{}
		m.locks[lotID] = lotLock
	}
	return lotLock
}

// Lock acquires the writer lock for lotID, creating it on first use.
func (m *LotLockManager) Lock(lotID string) {
	// Acquire outside the manager lock so other lots are not held up
	m.lotMutex(lotID).Lock()
}

// TryLock acquires the writer lock for lotID without blocking.
func (m *LotLockManager) TryLock(lotID string) bool {
	return m.lotMutex(lotID).TryLock()
}

// Unlock releases the writer lock for lotID.
func (m *LotLockManager) Unlock(lotID string) {
	m.mu.Lock()
	lotLock, exists := m.locks[lotID]
	m.mu.Unlock()

	if exists {
		lotLock.Unlock()
	}
}

// LockAll acquires the locks for every lot in lexicographic order so that two
// callers locking overlapping sets cannot deadlock.
func (m *LotLockManager) LockAll(lotIDs []string) {
	for _, id := range sortedUnique(lotIDs) {
		m.Lock(id)
	}
}

// UnlockAll releases the locks taken by LockAll in reverse order.
func (m *LotLockManager) UnlockAll(lotIDs []string) {
	ids := sortedUnique(lotIDs)
	for i := len(ids) - 1; i >= 0; i-- {
		m.Unlock(ids[i])
	}
}

func sortedUnique(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	out := sorted[:1]
	for _, id := range sorted[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
