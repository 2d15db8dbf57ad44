package bacnet

import (
	"sync"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
)

// subscriptionKey identifies one COV subscription: an object on a device.
type subscriptionKey struct {
	Object bacnet.ObjectID
	Device bacnet.ObjectID
}

// allocator hands out subscriber process identifiers for COV subscriptions.
//
// Identifiers are small positive integers, unique across live keys.
// Released identifiers go to a reclaim pool and are reused LIFO before a
// new one is minted. Assigning an already-registered key returns its
// existing identifier, so repeated subscribe attempts are idempotent.
type allocator struct {
	mu    sync.Mutex
	byKey map[subscriptionKey]uint32
	byID  map[uint32]subscriptionKey
	free  []uint32
	next  uint32
}

func newAllocator() *allocator {
	return &allocator{
		byKey: make(map[subscriptionKey]uint32),
		byID:  make(map[uint32]subscriptionKey),
		next:  1,
	}
}

// Assign returns the identifier for key, minting or reclaiming one if the
// key is new. Identifiers are always >= 1.
func (a *allocator) Assign(key subscriptionKey) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.byKey[key]; ok {
		return id
	}

	var id uint32
	if n := len(a.free); n > 0 {
		id = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		id = a.next
		a.next++
	}

	a.byKey[key] = id
	a.byID[id] = key
	return id
}

// Unassign releases key's identifier back to the reclaim pool. Unknown
// keys are a no-op.
func (a *allocator) Unassign(key subscriptionKey) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.byKey[key]
	if !ok {
		return
	}

	delete(a.byKey, key)
	delete(a.byID, id)
	a.free = append(a.free, id)
}

// Lookup resolves an identifier back to its key, for correlating inbound
// notifications.
func (a *allocator) Lookup(id uint32) (subscriptionKey, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key, ok := a.byID[id]
	return key, ok
}

// Len returns the number of live assignments.
func (a *allocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byKey)
}
