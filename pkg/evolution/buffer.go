package evolution

import (
	"container/heap"
	"sort"
)

// Exemplar is one training sample with its quality score. The buffer
// keeps the highest-quality exemplars seen so far.
type Exemplar struct {
	Text    string  `json:"text"`
	Quality float64 `json:"quality"`
	Source  string  `json:"source,omitempty"`
}

// exemplarHeap is a min-heap by quality, so the worst exemplar sits at
// the root and is the first evicted.
type exemplarHeap []Exemplar

func (h exemplarHeap) Len() int           { return len(h) }
func (h exemplarHeap) Less(i, j int) bool { return h[i].Quality < h[j].Quality }
func (h exemplarHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *exemplarHeap) Push(x any)        { *h = append(*h, x.(Exemplar)) }

func (h *exemplarHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// AddExemplar offers a training sample to the bounded buffer. At
// capacity the lowest-quality exemplar is evicted first; an offer worse
// than the current worst is rejected. Returns whether the exemplar was
// kept.
func (t *Tracker) AddExemplar(e Exemplar) bool {
	if len(t.buffer) < t.cfg.BufferCapacity {
		heap.Push(&t.buffer, e)
		return true
	}
	if e.Quality <= t.buffer[0].Quality {
		return false
	}
	t.buffer[0] = e
	heap.Fix(&t.buffer, 0)
	return true
}

// Exemplars returns the buffered samples ordered best-first.
func (t *Tracker) Exemplars() []Exemplar {
	out := append([]Exemplar(nil), t.buffer...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quality > out[j].Quality
	})
	return out
}

// BufferLen returns how many exemplars are currently held.
func (t *Tracker) BufferLen() int {
	return len(t.buffer)
}
