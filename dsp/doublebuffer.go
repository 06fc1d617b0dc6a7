package dsp

// DoubleBuffer is a circular buffer that stores every element twice, at
// p and p+Size(). Any window of Size() consecutive elements is therefore
// one contiguous slice and readers never handle wraparound.
type DoubleBuffer[T any] struct {
	internal     []T
	size         int
	writePointer int
}

// NewDoubleBuffer returns a buffer of the given capacity filled with value.
func NewDoubleBuffer[T any](size int, value T) *DoubleBuffer[T] {
	b := &DoubleBuffer[T]{}
	b.Resize(size, value)
	return b
}

// Resize reallocates storage for size elements, fills it with value and
// resets the write pointer. It is the only allocating method.
func (b *DoubleBuffer[T]) Resize(size int, value T) {
	if size < 0 {
		size = 0
	}
	b.size = size
	b.internal = make([]T, 2*size)
	b.Fill(value)
}

// Size returns the capacity.
func (b *DoubleBuffer[T]) Size() int { return b.size }

// WritePointer returns the index in [0, Size()) of the next write.
func (b *DoubleBuffer[T]) WritePointer() int { return b.writePointer }

// Push writes data at the write pointer into both halves and advances the
// pointer modulo Size(). A push longer than Size() keeps only its last
// Size() elements, as if they had been pushed one by one.
func (b *DoubleBuffer[T]) Push(data []T) {
	if b.size == 0 || len(data) == 0 {
		return
	}
	if skip := len(data) - b.size; skip > 0 {
		b.writePointer = (b.writePointer + skip) % b.size
		data = data[skip:]
	}

	start := b.writePointer
	first := min(len(data), b.size-start)
	copy(b.internal[start:], data[:first])
	copy(b.internal[start+b.size:], data[:first])
	if rest := data[first:]; len(rest) > 0 {
		copy(b.internal, rest)
		copy(b.internal[b.size:], rest)
	}
	b.writePointer = (start + len(data)) % b.size
}

// Data returns Size() contiguous elements starting at physical position
// start, taken modulo Size(). Negative offsets count back from the end.
func (b *DoubleBuffer[T]) Data(start int) []T {
	idx := start % b.size
	if idx < 0 {
		idx += b.size
	}
	return b.internal[idx : idx+b.size]
}

// Window returns the stored elements oldest first.
func (b *DoubleBuffer[T]) Window() []T {
	return b.Data(b.writePointer)
}

// Fill sets every element to value and resets the write pointer.
func (b *DoubleBuffer[T]) Fill(value T) {
	for i := range b.internal {
		b.internal[i] = value
	}
	b.writePointer = 0
}

// Clear fills the buffer with the zero value.
func (b *DoubleBuffer[T]) Clear() {
	var zero T
	b.Fill(zero)
}
