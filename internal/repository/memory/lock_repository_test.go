package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockRepositorySerializesSameKey(t *testing.T) {
	r := NewLockRepository()
	unlock := r.Lock("session-a")

	acquired := make(chan struct{})
	go func() {
		u := r.Lock("session-a")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock acquired while first was held")
	case <-time.After(30 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock never acquired")
	}
}

func TestLockRepositoryIndependentKeys(t *testing.T) {
	r := NewLockRepository()
	unlockA := r.Lock("a")
	defer unlockA()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Lock("b")()
	}()
	wg.Wait()

	assert.Equal(t, 2, r.Len())
}
