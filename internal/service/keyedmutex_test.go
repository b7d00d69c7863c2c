package service

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	var counter int64
	var maxConcurrent int64
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = km.withLock("recipient-1", func() error {
				n := atomic.AddInt64(&counter, 1)
				if n > atomic.LoadInt64(&maxConcurrent) {
					atomic.StoreInt64(&maxConcurrent, n)
				}
				atomic.AddInt64(&counter, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), maxConcurrent)
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := newKeyedMutex()
	a := km.lockFor("recipient-1")
	b := km.lockFor("recipient-2")
	assert.NotSame(t, a, b)
}
