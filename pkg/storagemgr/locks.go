package storagemgr

import (
	"sync"

	"github.com/cuemby/relkv/pkg/rerr"
)

// UniqueLock is a DDL-held lock whose cover of storage ids may grow and
// shrink over the lifetime of one transaction.
type UniqueLock struct {
	owner   string
	covered map[int64]bool
}

// SharedLock is a DML-held lock over a fixed set of storage ids.
type SharedLock struct {
	owner    *UniqueLock // non-nil if granted "through" a self-owning unique lock
	storages []int64
}

type lockTable struct {
	mu      sync.Mutex
	shared  map[int64][]*SharedLock // storage id -> active shared locks
	uniques map[int64]*UniqueLock   // storage id -> the unique lock covering it, if any
}

func newLockTable() *lockTable {
	return &lockTable{shared: map[int64][]*SharedLock{}, uniques: map[int64]*UniqueLock{}}
}

func (lt *lockTable) createUnique(owner string) *UniqueLock {
	return &UniqueLock{owner: owner, covered: map[int64]bool{}}
}

func (lt *lockTable) createShared(storages []int64, ownerUniqueLock *UniqueLock) (*SharedLock, error) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for _, id := range storages {
		if u, locked := lt.uniques[id]; locked && u != ownerUniqueLock {
			return nil, rerr.New(rerr.CodeBlockedByConcurrentOperation, "storage %d is unique-locked by another transaction", id)
		}
	}
	lock := &SharedLock{owner: ownerUniqueLock, storages: append([]int64(nil), storages...)}
	for _, id := range storages {
		lt.shared[id] = append(lt.shared[id], lock)
	}
	return lock, nil
}

func (lt *lockTable) releaseShared(lock *SharedLock) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for _, id := range lock.storages {
		list := lt.shared[id]
		for i, l := range list {
			if l == lock {
				lt.shared[id] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

func (lt *lockTable) addLocked(storages []int64, lock *UniqueLock) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for _, id := range storages {
		for _, s := range lt.shared[id] {
			// a shared lock held through this same unique lock is self-compatible
			if s.owner != lock {
				return rerr.New(rerr.CodeBlockedByConcurrentOperation, "storage %d is shared-locked by another owner", id)
			}
		}
	}
	for _, id := range storages {
		lock.covered[id] = true
		lt.uniques[id] = lock
	}
	return nil
}

func (lt *lockTable) removeLocked(storages []int64, lock *UniqueLock) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for _, id := range storages {
		if lt.uniques[id] == lock {
			delete(lt.uniques, id)
		}
		delete(lock.covered, id)
	}
}
