package businessflow

import "sync"

// Per-batch admission control for the reserve/release/edit write groups.
// Locking is keyed by stock id so unrelated batches never serialize against
// each other. Lock entries are never removed; the batch universe is small.
type stockLockTable struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

var stockLocks = &stockLockTable{
	locks: make(map[uint]*sync.Mutex),
}

func (t *stockLockTable) get(stockID uint) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[stockID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[stockID] = l
	}
	return l
}

func lockStock(stockID uint) {
	stockLocks.get(stockID).Lock()
}

func unlockStock(stockID uint) {
	stockLocks.get(stockID).Unlock()
}
