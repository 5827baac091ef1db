package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreNotifiesSubscribers(t *testing.T) {
	s := New(1)
	var got []int
	unsubscribe := s.Subscribe(func(v int) { got = append(got, v) })

	s.Set(2)
	s.Update(func(cur int) (int, bool) { return cur + 10, true })

	require.Equal(t, []int{2, 12}, got)
	assert.Equal(t, 12, s.Get())

	unsubscribe()
	unsubscribe()
	s.Set(3)
	assert.Equal(t, []int{2, 12}, got)
}

func TestStoreUpdateWithoutChangeDoesNotNotify(t *testing.T) {
	s := New("a")
	calls := 0
	s.Subscribe(func(string) { calls++ })

	res := s.Update(func(cur string) (string, bool) { return "ignored", false })

	assert.Equal(t, "a", res)
	assert.Equal(t, "a", s.Get())
	assert.Zero(t, calls)
}

func TestStoreNestedCommitsDeliveredInOrder(t *testing.T) {
	s := New(0)
	var first, second []int
	s.Subscribe(func(v int) {
		first = append(first, v)
		if v == 1 {
			s.Set(2)
		}
	})
	s.Subscribe(func(v int) { second = append(second, v) })

	s.Set(1)

	assert.Equal(t, []int{1, 2}, first)
	assert.Equal(t, []int{1, 2}, second)
	assert.Equal(t, 2, s.Get())
}

func TestStoreUnsubscribeKeepsOthers(t *testing.T) {
	s := New(0)
	var a, b, c int
	s.Subscribe(func(v int) { a = v })
	unsubB := s.Subscribe(func(v int) { b = v })
	s.Subscribe(func(v int) { c = v })

	unsubB()
	s.Set(5)

	assert.Equal(t, 5, a)
	assert.Equal(t, 0, b)
	assert.Equal(t, 5, c)
}

func TestStoreConcurrentUpdates(t *testing.T) {
	s := New(0)
	var mu sync.Mutex
	seen := 0
	s.Subscribe(func(int) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(cur int) (int, bool) { return cur + 1, true })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Get())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 50, seen)
}

func TestStorePanickingListenerDoesNotStallDelivery(t *testing.T) {
	s := New(0)
	var got []int
	s.Subscribe(func(v int) {
		if v == 1 {
			panic("listener failed")
		}
	})
	s.Subscribe(func(v int) { got = append(got, v) })

	assert.Panics(t, func() { s.Set(1) })
	assert.Equal(t, 1, s.Get())

	s.Set(2)
	s.Set(3)
	require.Equal(t, []int{2, 3}, got)
}
