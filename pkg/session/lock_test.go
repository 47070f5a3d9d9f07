package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocks_NoLeak(t *testing.T) {
	l := NewLocks()
	for i := 0; i < 10000; i++ {
		unlock := l.Lock(fmt.Sprintf("session-%d", i))
		unlock()
	}
	assert.Equal(t, 0, l.Len())
}

func TestLocks_Serializes(t *testing.T) {
	var l Locks
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("same")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.Len())
}
