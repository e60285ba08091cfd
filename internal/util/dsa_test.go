package util_test

import (
	"sync"
	"testing"

	"github.com/phusion/zangetsu/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Queue(t *testing.T) {
	q := util.CreateQueue[int](8)
	assert.Equal(t, 0, q.Cnt())

	for range 3 {
		for i := range 5 {
			q.Push(i)
		}
		assert.Equal(t, 5, q.Cnt())
		for i := range 5 {
			res := q.Pop()
			assert.Equal(t, i, res)
		}
		assert.Equal(t, 0, q.Cnt())
	}

	assert.Panics(t, func() { q.Pop() })
}

func Test_Queue_Grow_Keeps_Order(t *testing.T) {
	q := util.CreateQueue[int](4)

	// wrap the head around before growing
	for i := range 3 {
		q.Push(i)
	}
	q.Pop()
	q.Pop()

	for i := 3; i < 40; i++ {
		q.Push(i)
	}
	assert.GreaterOrEqual(t, q.Cap(), 38)
	assert.Equal(t, 38, q.Cnt())

	for i := 2; i < 40; i++ {
		assert.Equal(t, i, q.Pop())
	}
}

func Test_Mailbox_Fifo(t *testing.T) {
	mb := util.CreateMailbox[int]()

	for i := range 100 {
		require.True(t, mb.Push(i))
	}
	assert.Equal(t, 100, mb.Len())

	<-mb.Notify()
	for i := range 100 {
		v, ok := mb.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := mb.TryPop()
	assert.False(t, ok)
}

func Test_Mailbox_Closed(t *testing.T) {
	mb := util.CreateMailbox[int]()
	require.True(t, mb.Push(1))
	mb.Close()

	assert.False(t, mb.Push(2))
	assert.False(t, mb.Done())

	v, ok := mb.TryPop()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, mb.Done())
}

func Test_Mailbox_Many_Producers(t *testing.T) {
	const PRODUCERS = 8
	const PER = 500
	mb := util.CreateMailbox[int]()

	var wg sync.WaitGroup
	for p := range PRODUCERS {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range PER {
				mb.Push(p*PER + i)
			}
		}()
	}
	wg.Wait()

	seen := make(map[int]bool, PRODUCERS*PER)
	for {
		v, ok := mb.TryPop()
		if !ok {
			break
		}
		assert.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, PRODUCERS*PER)
}

func Test_Mailbox_Close_Wakes_All(t *testing.T) {
	mb := util.CreateMailbox[int]()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !mb.Done() {
				select {
				case <-mb.Notify():
				case <-mb.Closed():
				}
			}
		}()
	}
	mb.Close()
	mb.Close() // idempotent
	wg.Wait()
}
