package cmdlet

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestQueuePreservesPerProducerOrder(t *testing.T) {
	const producers = 4
	const perProducer = 100

	q := newCallQueue()

	var mu sync.Mutex
	var serviced []string

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				id := fmt.Sprintf("p%d-%d", p, i)
				q.enqueue(func() error {
					mu.Lock()
					serviced = append(serviced, id)
					mu.Unlock()
					return nil
				})
			}
		}(p)
	}
	wg.Wait()

	q.drain()

	if len(serviced) != producers*perProducer {
		t.Fatalf("expected %d calls serviced, got %d", producers*perProducer, len(serviced))
	}

	// Each producer's calls must appear as an in-order subsequence.
	next := make([]int, producers)
	for _, id := range serviced {
		var p, i int
		if _, err := fmt.Sscanf(id, "p%d-%d", &p, &i); err != nil {
			t.Fatalf("malformed id %q: %v", id, err)
		}
		if i != next[p] {
			t.Fatalf("producer %d: expected call %d next, saw %d", p, next[p], i)
		}
		next[p]++
	}
}

func TestQueueCompletionCarriesCallError(t *testing.T) {
	q := newCallQueue()
	callErr := errors.New("restricted call failed")

	failing := q.enqueue(func() error { return callErr })
	ok := q.enqueue(func() error { return nil })

	q.drain()

	if err := failing.Wait(); !errors.Is(err, callErr) {
		t.Errorf("expected call error, got %v", err)
	}
	if err := ok.Wait(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestQueueCallPanicRejectsOnlyThatCompletion(t *testing.T) {
	q := newCallQueue()

	panicking := q.enqueue(func() error { panic("call misbehaved") })
	ok := q.enqueue(func() error { return nil })

	q.drain()

	if err := panicking.Wait(); err == nil {
		t.Error("expected the panicking call's completion to reject")
	}
	if err := ok.Wait(); err != nil {
		t.Errorf("panic must not poison later calls, got %v", err)
	}
}
