package buffer

import (
	"math"
	"slices"
)

// SortedRing is a Ring that also keeps its contents in ascending order, so
// order statistics over the window cost a binary search per update instead
// of a sort per query.
type SortedRing struct {
	ring   Ring
	sorted []float64
}

// NewSortedRing returns a zero-filled sorted window of the given length.
func NewSortedRing(length int) *SortedRing {
	s := &SortedRing{}
	s.Resize(length)
	return s
}

// Resize sets the window length and clears the contents.
func (s *SortedRing) Resize(length int) {
	s.ring.Resize(length)
	n := s.ring.Len()
	if cap(s.sorted) >= n {
		s.sorted = s.sorted[:n]
	} else {
		s.sorted = make([]float64, n)
	}
	s.Reset()
}

// Len returns the window length.
func (s *SortedRing) Len() int {
	return s.ring.Len()
}

// Push adds v, evicting the oldest value. NaN values are stored as 0.
func (s *SortedRing) Push(v float64) {
	if math.IsNaN(v) {
		v = 0
	}
	evicted := s.ring.Push(v)

	i, _ := slices.BinarySearch(s.sorted, evicted)
	j, _ := slices.BinarySearch(s.sorted, v)
	switch {
	case j > i:
		// Shift (i, j) left by one and place v just below j.
		copy(s.sorted[i:j-1], s.sorted[i+1:j])
		s.sorted[j-1] = v
	case j < i:
		copy(s.sorted[j+1:i+1], s.sorted[j:i])
		s.sorted[j] = v
	default:
		s.sorted[i] = v
	}
}

// Quantile returns the stored value at fractional rank p, using the index
// floor(p*Len) clamped to the window. p is clamped to [0, 1].
func (s *SortedRing) Quantile(p float64) float64 {
	n := len(s.sorted)
	if !(p > 0) {
		return s.sorted[0]
	}
	idx := int(p * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return s.sorted[idx]
}

// Sorted returns the window contents in ascending order. The slice is owned
// by the SortedRing and is only valid until the next Push.
func (s *SortedRing) Sorted() []float64 {
	return s.sorted
}

// Reset zeroes the window.
func (s *SortedRing) Reset() {
	s.ring.Reset()
	for i := range s.sorted {
		s.sorted[i] = 0
	}
}
