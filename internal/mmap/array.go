package mmap

import (
	"unsafe"

	"github.com/orizon-lang/lattice/internal/errors"
	"github.com/orizon-lang/lattice/internal/runtime/vfs"
	"github.com/orizon-lang/lattice/internal/types"
)

// Element is a Go type with a fixed layout that can be read from mapped bytes.
type Element interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Array is a typed, column-major view over a Buffer. It holds no slice of its
// own; elements are resolved against the buffer on each access so a closed
// buffer cannot be read through the view.
type Array[T Element] struct {
	buf  *Buffer
	n    int
	dims []int
}

// NewArray views buf as elements of T. T must have the size of the buffer's
// element type and the mapped range must be aligned for T.
func NewArray[T Element](buf *Buffer) (*Array[T], error) {
	if buf == nil || buf.Closed() {
		return nil, errors.ClosedResource("mapped buffer")
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	if buf.elem == nil || types.SizeOf(buf.elem) != size {
		return nil, errors.InvalidArgument("%T cannot view elements of %v", zero, buf.elem)
	}
	a := &Array[T]{buf: buf, n: buf.Len() / size, dims: buf.Dims()}
	if a.n == 0 {
		return a, nil
	}
	p := unsafe.Pointer(unsafe.SliceData(buf.data))
	if uintptr(p)%unsafe.Alignof(zero) != 0 {
		return nil, errors.InvalidArgument("offset %d is not aligned for %T", buf.offset, zero)
	}
	return a, nil
}

// MapArray maps src and views it as elements of T in one step.
func MapArray[T Element](src vfs.File, elem types.Type, dims []int, opts ...Option) (*Array[T], error) {
	buf, err := Map(src, elem, dims, opts...)
	if err != nil {
		return nil, err
	}
	a, err := NewArray[T](buf)
	if err != nil {
		_ = buf.Close()
		return nil, err
	}
	return a, nil
}

func (a *Array[T]) Buffer() *Buffer { return a.buf }
func (a *Array[T]) Dims() []int     { return append([]int(nil), a.dims...) }
func (a *Array[T]) Close() error    { return a.buf.Close() }

// Len reports the number of elements, zero once the buffer is closed.
func (a *Array[T]) Len() int {
	if a.buf.Closed() {
		return 0
	}
	return a.n
}

// elems resolves the live mapping. The caller must have checked Closed.
func (a *Array[T]) elems() []T {
	if a.n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(a.buf.data))), a.n)
}

// At returns element i in linear order. It panics with a ClosedResource
// error after Close and with IndexOutOfBounds if i is out of range.
func (a *Array[T]) At(i int) T {
	if a.buf.Closed() {
		panic(errors.ClosedResource(a.buf.name))
	}
	if i < 0 || i >= a.n {
		panic(errors.IndexOutOfBounds(i, a.n))
	}
	return a.elems()[i]
}

// Set stores v at linear index i.
func (a *Array[T]) Set(i int, v T) error {
	if a.buf.Closed() {
		return errors.ClosedResource(a.buf.name)
	}
	if i < 0 || i >= a.n {
		return errors.IndexOutOfBounds(i, a.n)
	}
	if a.buf.readonly {
		return errors.ReadOnlyViolation(a.buf.name, a.buf.offset+int64(i)*int64(unsafe.Sizeof(v)))
	}
	a.elems()[i] = v
	return nil
}

// Index converts zero-based coordinates to a linear index, first dimension
// varying fastest.
func (a *Array[T]) Index(coords ...int) (int, error) {
	if len(coords) != len(a.dims) {
		return 0, errors.InvalidArgument("%d coordinates for %d dimensions", len(coords), len(a.dims))
	}
	idx, stride := 0, 1
	for k, c := range coords {
		if c < 0 || c >= a.dims[k] {
			return 0, errors.IndexOutOfBounds(c, a.dims[k])
		}
		idx += c * stride
		stride *= a.dims[k]
	}
	return idx, nil
}
