package merton

import "sort"

// Window is a fixed-capacity FIFO of (log-return, microsecond-interval)
// pairs. Both buffers are preallocated rings, so pushes in steady state do
// not allocate. Returns and intervals always have the same length.
type Window struct {
	returns []float64
	dts     []int64
	head    int
	size    int
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{
		returns: make([]float64, capacity),
		dts:     make([]int64, capacity),
	}
}

// Push appends a pair, evicting the oldest pair when the window is full.
func (w *Window) Push(logReturn float64, dtMicros int64) {
	var idx int
	if w.size == len(w.returns) {
		idx = w.head
		w.head = (w.head + 1) % len(w.returns)
	} else {
		idx = (w.head + w.size) % len(w.returns)
		w.size++
	}
	w.returns[idx] = logReturn
	w.dts[idx] = dtMicros
}

func (w *Window) Len() int { return w.size }

// At returns the i-th oldest pair.
func (w *Window) At(i int) (logReturn float64, dtMicros int64) {
	idx := (w.head + i) % len(w.returns)
	return w.returns[idx], w.dts[idx]
}

// EachReturn visits the stored log-returns oldest first.
func (w *Window) EachReturn(fn func(r float64)) {
	for i := 0; i < w.size; i++ {
		fn(w.returns[(w.head+i)%len(w.returns)])
	}
}

// MedianDtMicros returns the element at index n/2 of the sorted intervals
// (the upper median for even n), or 0 for an empty window. The upper median
// is deliberate: it avoids interpolation artifacts from tiny intervals and
// is stable under small jitter.
func (w *Window) MedianDtMicros() int64 {
	if w.size == 0 {
		return 0
	}
	s := make([]int64, w.size)
	for i := 0; i < w.size; i++ {
		s[i] = w.dts[(w.head+i)%len(w.dts)]
	}
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	return s[w.size/2]
}
