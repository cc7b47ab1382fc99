// Package buffer provides the N-dimensional byte buffer that holds extracted pixels.
package buffer

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOverflow is matched by every out-of-bounds access.
	ErrOverflow = errors.New("buffer: overflow")

	// ErrAllocation is returned when the requested dimensions cannot be allocated.
	ErrAllocation = errors.New("buffer: allocation failed")
)

// OverflowError reports an access beyond the allocated size. Length is
// the number of bytes requested at Offset, or 0 for open-ended access.
type OverflowError struct {
	Offset int
	Length int
	Size   int
}

func (e *OverflowError) Error() string {
	if e.Length > 0 {
		return fmt.Sprintf("buffer overflow: tried to get %d bytes at %d, allowed max size %d", e.Length, e.Offset, e.Size)
	}
	return fmt.Sprintf("buffer overflow: tried to get %d, allowed max size %d", e.Offset, e.Size)
}

// Is makes errors.Is(err, ErrOverflow) succeed.
func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}

// PixelBuffer is a flat byte region addressed by row-major strides.
// Its dimensions, strides and size never change after New.
type PixelBuffer struct {
	dims    []int
	strides []int
	data    []byte
}

// New allocates a zeroed buffer with the given dimensions (outermost first).
func New(dims ...int) (*PixelBuffer, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: no dimensions", ErrAllocation)
	}

	size := 1
	for i, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("%w: dimension %d is %d", ErrAllocation, i, d)
		}
		if size > math.MaxInt/d {
			return nil, fmt.Errorf("%w: size of %v overflows", ErrAllocation, dims)
		}
		size *= d
	}

	strides := make([]int, len(dims))
	strides[len(dims)-1] = 1
	for i := len(dims) - 1; i > 0; i-- {
		strides[i-1] = strides[i] * dims[i]
	}

	return &PixelBuffer{
		dims:    append([]int(nil), dims...),
		strides: strides,
		data:    make([]byte, size),
	}, nil
}

// Dims returns a copy of the dimensions.
func (b *PixelBuffer) Dims() []int {
	return append([]int(nil), b.dims...)
}

// Strides returns a copy of the byte strides per dimension.
func (b *PixelBuffer) Strides() []int {
	return append([]int(nil), b.strides...)
}

// Size returns the allocated size in bytes.
func (b *PixelBuffer) Size() int {
	return len(b.data)
}

// Bytes returns the whole backing storage.
func (b *PixelBuffer) Bytes() []byte {
	return b.data
}

// At returns the storage starting at offset.
func (b *PixelBuffer) At(offset int) ([]byte, error) {
	if offset < 0 || offset >= len(b.data) {
		return nil, &OverflowError{Offset: offset, Size: len(b.data)}
	}
	return b.data[offset:], nil
}

// Span returns exactly n bytes starting at offset.
func (b *PixelBuffer) Span(offset, n int) ([]byte, error) {
	if n < 0 || offset < 0 || offset > len(b.data)-n || offset >= len(b.data) {
		return nil, &OverflowError{Offset: offset, Length: n, Size: len(b.data)}
	}
	return b.data[offset : offset+n : offset+n], nil
}

// Frame returns the i-th element along the outermost dimension.
func (b *PixelBuffer) Frame(i int) ([]byte, error) {
	if i < 0 || i >= b.dims[0] {
		return nil, &OverflowError{Offset: i * b.strides[0], Length: b.strides[0], Size: len(b.data)}
	}
	return b.Span(i*b.strides[0], b.strides[0])
}
