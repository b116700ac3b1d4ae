package exchange

import (
	"sync"
	"testing"
)

func TestExtentObserveNarrowsToWidestRange(t *testing.T) {
	e := NewExtent()
	if _, _, ok := e.Range(); ok {
		t.Fatal("fresh extent should report no observation")
	}
	e.Observe(10, 20)
	e.Observe(-5, 15)
	e.Observe(0, 100)

	min, max, ok := e.Range()
	if !ok {
		t.Fatal("expected an observation after Observe calls")
	}
	if min != -5 || max != 100 {
		t.Fatalf("Range() = (%d, %d), want (-5, 100)", min, max)
	}
}

func TestExtentConcurrentObserve(t *testing.T) {
	e := NewExtent()
	var wg sync.WaitGroup
	for i := -50; i < 50; i++ {
		wg.Add(1)
		go func(v int32) {
			defer wg.Done()
			e.Observe(v, v)
		}(int32(i))
	}
	wg.Wait()

	min, max, ok := e.Range()
	if !ok {
		t.Fatal("expected an observation")
	}
	if min != -50 || max != 49 {
		t.Fatalf("Range() = (%d, %d), want (-50, 49)", min, max)
	}
}
