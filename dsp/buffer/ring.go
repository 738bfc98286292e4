package buffer

// Ring is a fixed-length circular history of float64 values. A new Ring is
// full of zeros; every Push overwrites the oldest value.
type Ring struct {
	data []float64
	pos  int
}

// NewRing returns a zero-filled ring of the given length. Lengths below 1
// are raised to 1.
func NewRing(length int) *Ring {
	r := &Ring{}
	r.Resize(length)
	return r
}

// Resize sets the ring length, reusing capacity when possible, and clears
// the contents.
func (r *Ring) Resize(length int) {
	if length < 1 {
		length = 1
	}
	if cap(r.data) >= length {
		r.data = r.data[:length]
	} else {
		r.data = make([]float64, length)
	}
	r.Reset()
}

// Len returns the ring length.
func (r *Ring) Len() int {
	return len(r.data)
}

// Push stores v in place of the oldest value and returns the value it
// replaced.
func (r *Ring) Push(v float64) float64 {
	evicted := r.data[r.pos]
	r.data[r.pos] = v
	r.pos++
	if r.pos >= len(r.data) {
		r.pos = 0
	}
	return evicted
}

// Wrapped reports whether the last Push filled the final slot, so the next
// Push starts a new pass over the storage.
func (r *Ring) Wrapped() bool {
	return r.pos == 0
}

// At returns the value pushed age pushes ago; At(0) is the newest.
// Ages outside [0, Len) wrap around.
func (r *Ring) At(age int) float64 {
	n := len(r.data)
	idx := (r.pos - 1 - age) % n
	if idx < 0 {
		idx += n
	}
	return r.data[idx]
}

// Slot returns the value stored at physical index i. Slot order is the
// storage order, not the arrival order.
func (r *Ring) Slot(i int) float64 {
	return r.data[i]
}

// Pos returns the physical index the next Push writes to.
func (r *Ring) Pos() int {
	return r.pos
}

// Sum returns the exact sum of all stored values.
func (r *Ring) Sum() float64 {
	sum := 0.0
	for _, v := range r.data {
		sum += v
	}
	return sum
}

// Reset zeroes the contents and rewinds the write position.
func (r *Ring) Reset() {
	for i := range r.data {
		r.data[i] = 0
	}
	r.pos = 0
}
