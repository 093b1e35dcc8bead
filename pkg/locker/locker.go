package locker

import (
	"sync"

	"go.uber.org/fx"
)

var Module = fx.Module("locker", fx.Provide(NewKeyed))

// Keyed hands out one mutex per key. Every writer touching an account's
// orders or automation tasks must hold that account's lock, so the
// scheduler and the request handlers never interleave a read-modify-write
// on the same account.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

func (k *Keyed) lock(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *Keyed) Lock(key string) func() {
	l := k.lock(key)
	l.Lock()
	return l.Unlock
}
