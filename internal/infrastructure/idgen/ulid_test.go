package idgen

import (
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestULIDGenerator_Sorted(t *testing.T) {
	g := NewULIDGenerator()

	prev := g.Generate()
	for i := 0; i < 1000; i++ {
		next := g.Generate()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		if _, err := ulid.Parse(next); err != nil {
			t.Fatalf("invalid ulid %q: %v", next, err)
		}
		prev = next
	}
}

func TestULIDGenerator_Concurrent(t *testing.T) {
	g := NewULIDGenerator()

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id := g.Generate()
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate id %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 1600 {
		t.Fatalf("expected 1600 ids, got %d", len(seen))
	}
}
