package hwio

import (
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// BusLocks serializes access to the shared hardware connections sensors are
// read through. The monitoring loop and calibration raw-read steps acquire
// the same lock for a bus, and never hold it across a suspension point.
type BusLocks struct {
	locks cmap.ConcurrentMap[string, *sync.Mutex]
}

func NewBusLocks() *BusLocks {
	return &BusLocks{
		locks: cmap.New[*sync.Mutex](),
	}
}

func (b *BusLocks) mutex(bus string) *sync.Mutex {
	if lock, ok := b.locks.Get(bus); ok {
		return lock
	}
	lock := &sync.Mutex{}
	if !b.locks.SetIfAbsent(bus, lock) {
		lock, _ = b.locks.Get(bus)
	}
	return lock
}

// Lock acquires exclusive access to the given bus.
func (b *BusLocks) Lock(bus string) {
	b.mutex(bus).Lock()
}

// Unlock releases the given bus.
func (b *BusLocks) Unlock(bus string) {
	b.mutex(bus).Unlock()
}
