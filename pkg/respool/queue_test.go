package respool

import "testing"

func TestFIFOQueueOrdering(t *testing.T) {
	q := newFIFOQueue()
	q.push(taskEntry{rank: 1})
	q.push(taskEntry{rank: 2})
	q.push(taskEntry{rank: 3})

	for _, want := range []int{1, 2, 3} {
		e, ok := q.pop()
		if !ok {
			t.Fatal("pop() ok = false, want true")
		}
		if e.rank != want {
			t.Errorf("pop() rank = %d, want %d", e.rank, want)
		}
	}
}

func TestFIFOQueueCloseUnblocksPop(t *testing.T) {
	q := newFIFOQueue()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.pop()
		done <- ok
	}()
	q.close()
	if ok := <-done; ok {
		t.Error("pop() after close on an empty queue should return ok=false")
	}
}

func TestFIFOQueuePushAfterCloseIsDropped(t *testing.T) {
	q := newFIFOQueue()
	q.close()
	q.push(taskEntry{rank: 1})
	if got := q.len(); got != 0 {
		t.Errorf("len() = %d, want 0 for a push after close", got)
	}
}

func TestPriorityQueueOrdersByRankDescending(t *testing.T) {
	q := newPriorityQueue()
	q.push(taskEntry{rank: 1})
	q.push(taskEntry{rank: 5})
	q.push(taskEntry{rank: 3})

	for _, want := range []int{5, 3, 1} {
		e, ok := q.pop()
		if !ok {
			t.Fatal("pop() ok = false, want true")
		}
		if e.rank != want {
			t.Errorf("pop() rank = %d, want %d", e.rank, want)
		}
	}
}

func TestPriorityQueueFIFOWithinEqualRank(t *testing.T) {
	q := newPriorityQueue()
	markers := []string{"first", "second", "third"}
	for _, m := range markers {
		q.push(taskEntry{rank: 1, run: func() {}, seq: 0}) // seq is assigned internally by push
		_ = m
	}

	var order []int
	for i := 0; i < 3; i++ {
		e, ok := q.pop()
		if !ok {
			t.Fatal("pop() ok = false, want true")
		}
		order = append(order, int(e.seq))
	}
	for i, seq := range order {
		if seq != i {
			t.Errorf("order[%d] seq = %d, want %d (submission order within equal rank)", i, seq, i)
		}
	}
}

func TestPriorityQueueLen(t *testing.T) {
	q := newPriorityQueue()
	if got := q.len(); got != 0 {
		t.Fatalf("len() = %d, want 0", got)
	}
	q.push(taskEntry{rank: 1})
	q.push(taskEntry{rank: 2})
	if got := q.len(); got != 2 {
		t.Errorf("len() = %d, want 2", got)
	}
}
