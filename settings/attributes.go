package settings

import "container/heap"

// attribute is a single candidate value for a key at a given priority.
type attribute struct {
	rank     int
	seq      uint64
	priority string
	value    any
}

// attributeHeap is a max-heap of attributes ordered by rank, then recency.
type attributeHeap []attribute

func (h attributeHeap) Len() int { return len(h) }

func (h attributeHeap) Less(i, j int) bool {
	if h[i].rank != h[j].rank {
		return h[i].rank > h[j].rank
	}
	return h[i].seq > h[j].seq
}

func (h attributeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *attributeHeap) Push(x any) { *h = append(*h, x.(attribute)) }

func (h *attributeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Attributes holds every value ever set for a single key, one per write.
// Reads observe the value with the highest priority rank; among writes at
// the same rank, the most recent wins.
type Attributes struct {
	heap attributeHeap
	seq  uint64
}

// Set records value at the given priority. An unregistered priority name
// is an error and leaves the container unchanged.
func (a *Attributes) Set(value any, priority string) error {
	rank, err := PriorityRank(priority)
	if err != nil {
		return err
	}
	a.seq++
	heap.Push(&a.heap, attribute{rank: rank, seq: a.seq, priority: priority, value: value})
	return nil
}

// Get returns the highest-priority value, or (nil, false) when empty.
func (a *Attributes) Get() (any, bool) {
	if a.heap.Len() == 0 {
		return nil, false
	}
	return a.heap[0].value, true
}

// Priority returns the name of the highest priority, or ("", false) when empty.
func (a *Attributes) Priority() (string, bool) {
	if a.heap.Len() == 0 {
		return "", false
	}
	return a.heap[0].priority, true
}

// Len returns the number of recorded values.
func (a *Attributes) Len() int { return a.heap.Len() }
