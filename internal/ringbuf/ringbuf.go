// Package ringbuf provides a fixed-length sliding window over float64 values backed
// by a power-of-two ring, so index wrap-around is a bitwise mask.
package ringbuf

// Window holds the most recent values pushed, up to its length.
// It is not safe for concurrent use.
type Window struct {
	buf    []float64
	mask   uint64
	length uint64
	head   uint64 // total pushes
}

// New creates a window of the given length (minimum 1). The backing ring is
// rounded up to the next power of two.
func New(length int) *Window {
	if length < 1 {
		length = 1
	}
	size := nextPow2(length)
	return &Window{
		buf:    make([]float64, size),
		mask:   uint64(size - 1),
		length: uint64(length),
	}
}

// Push appends v. When the window is already full the oldest value is evicted and
// returned with ok=true.
func (w *Window) Push(v float64) (evicted float64, ok bool) {
	if w.head >= w.length {
		evicted, ok = w.buf[(w.head-w.length)&w.mask], true
	}
	w.buf[w.head&w.mask] = v
	w.head++
	return evicted, ok
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
