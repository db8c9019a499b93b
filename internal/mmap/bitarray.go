package mmap

import (
	"math/bits"

	"github.com/orizon-lang/lattice/internal/errors"
)

// BitArray is a bit-packed boolean view. Bit i is bit i&7 of byte i>>3.
type BitArray struct {
	buf *Buffer
	n   int
}

func (b *BitArray) Buffer() *Buffer { return b.buf }
func (b *BitArray) Close() error    { return b.buf.Close() }

// Len reports the number of bits, zero once the buffer is closed.
func (b *BitArray) Len() int {
	if b.buf.Closed() {
		return 0
	}
	return b.n
}

// Get reports bit i. Like Array.At it panics with a ClosedResource error
// after Close and with IndexOutOfBounds if i is out of range.
func (b *BitArray) Get(i int) bool {
	if b.buf.Closed() {
		panic(errors.ClosedResource(b.buf.name))
	}
	if i < 0 || i >= b.n {
		panic(errors.IndexOutOfBounds(i, b.n))
	}
	return b.buf.data[i>>3]&(1<<(i&7)) != 0
}

func (b *BitArray) Set(i int, v bool) error {
	if b.buf.Closed() {
		return errors.ClosedResource(b.buf.name)
	}
	if i < 0 || i >= b.n {
		return errors.IndexOutOfBounds(i, b.n)
	}
	if b.buf.readonly {
		return errors.ReadOnlyViolation(b.buf.name, b.buf.offset+int64(i>>3))
	}
	mask := byte(1) << (i & 7)
	if v {
		b.buf.data[i>>3] |= mask
	} else {
		b.buf.data[i>>3] &^= mask
	}
	return nil
}

// Count returns the number of set bits. Padding bits in the last byte are
// ignored.
func (b *BitArray) Count() int {
	if b.buf.Closed() {
		return 0
	}
	full := b.n >> 3
	c := 0
	for _, x := range b.buf.data[:full] {
		c += bits.OnesCount8(x)
	}
	if rem := b.n & 7; rem != 0 {
		c += bits.OnesCount8(b.buf.data[full] & (1<<rem - 1))
	}
	return c
}
