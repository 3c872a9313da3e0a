package schedule

import (
	"container/heap"
	"slices"
)

// deadlineHeap orders records by deadline, earliest first. Records keep
// their slot index so removal does not need a scan. Equal deadlines have no
// defined order.
type deadlineHeap []*record

func (h deadlineHeap) Len() int           { return len(h) }
func (h deadlineHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap) Push(x any) {
	r := x.(*record)
	r.index = len(*h)
	*h = append(*h, r)
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.index = -1
	*h = old[:n-1]
	return r
}

func (h *deadlineHeap) insert(r *record) {
	heap.Push(h, r)
}

// remove detaches r. It reports false if r is not in this heap.
func (h *deadlineHeap) remove(r *record) bool {
	if r.index < 0 || r.index >= len(*h) || (*h)[r.index] != r {
		return false
	}
	heap.Remove(h, r.index)
	return true
}

// fix restores the ordering after r's deadline changed.
func (h *deadlineHeap) fix(r *record) {
	heap.Fix(h, r.index)
}

func (h deadlineHeap) min() *record {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

func (h deadlineHeap) isEmpty() bool {
	return len(h) == 0
}

// snapshot returns the records in heap slot order. Teardown walks this copy
// because detaching mutates the heap.
func (h deadlineHeap) snapshot() []*record {
	return slices.Clone(h)
}

// sorted returns the records ordered by deadline.
func (h deadlineHeap) sorted() []*record {
	out := slices.Clone(h)
	slices.SortFunc(out, func(a, b *record) int {
		return a.deadline.Compare(b.deadline)
	})
	return out
}

func (h *deadlineHeap) reset() {
	for _, r := range *h {
		r.index = -1
	}
	*h = (*h)[:0]
}
