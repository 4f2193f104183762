package memory

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// LockRepository hands out one mutex per key. Idle keys expire so the set of
// session ids seen over the process lifetime does not grow without bound.
type LockRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewLockRepository() *LockRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &LockRepository{
		cache: c,
	}
}

// Lock blocks until key is free and returns the matching unlock func.
func (r *LockRepository) Lock(key string) func() {
	r.mu.Lock()
	var m *sync.Mutex
	if x, found := r.cache.Get(key); found {
		m = x.(*sync.Mutex)
	} else {
		m = &sync.Mutex{}
	}
	// refresh expiry on every use
	r.cache.Set(key, m, cache.DefaultExpiration)
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (r *LockRepository) Len() int {
	return r.cache.ItemCount()
}
