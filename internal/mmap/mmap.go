package mmap

import (
	"io"
	"math"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orizon-lang/lattice/internal/errors"
	"github.com/orizon-lang/lattice/internal/runtime/vfs"
	"github.com/orizon-lang/lattice/internal/types"
)

// maxPageSize bounds the alignment slack added in front of a file mapping.
const maxPageSize = 1 << 16

// Advice is a hint about how a mapping will be accessed.
type Advice int

const (
	AdviceNormal Advice = iota
	AdviceRandom
	AdviceSequential
	AdviceWillNeed
	AdviceDontNeed
)

func (a Advice) String() string {
	switch a {
	case AdviceNormal:
		return "normal"
	case AdviceRandom:
		return "random"
	case AdviceSequential:
		return "sequential"
	case AdviceWillNeed:
		return "willneed"
	case AdviceDontNeed:
		return "dontneed"
	}
	return "unknown"
}

type config struct {
	offset int64
	grow   bool
	shared bool
	logger *zap.Logger
}

// Option configures a mapping request.
type Option func(*config)

// WithOffset starts the mapping at byte offset off of the source.
func WithOffset(off int64) Option { return func(c *config) { c.offset = off } }

// WithGrow controls whether a writable source shorter than the requested range
// is extended with zero bytes. Enabled by default.
func WithGrow(grow bool) Option { return func(c *config) { c.grow = grow } }

// WithShared selects a shared (default) or private copy-on-write mapping.
func WithShared(shared bool) Option { return func(c *config) { c.shared = shared } }

// WithLogger sets the logger used for mapping lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{grow: true, shared: true, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Buffer is one active OS mapping.
type Buffer struct {
	id       uuid.UUID
	name     string
	elem     types.Type
	dims     []int
	offset   int64
	readonly bool
	shared   bool
	anon     bool

	region []byte // page-aligned OS mapping; nil for empty views
	data   []byte // the requested range within region

	closed atomic.Bool
	logger *zap.Logger
}

// Map maps the range of src holding an array of elem with the given
// dimensions. A nil dims maps a vector covering the rest of the source.
func Map(src vfs.File, elem types.Type, dims []int, opts ...Option) (*Buffer, error) {
	cfg := newConfig(opts)
	if src == nil {
		return nil, errors.InvalidArgument("nil mapping source")
	}
	if !types.IsBits(elem) {
		return nil, errors.InvalidArgument("element type %v does not have a fixed layout", elem)
	}
	if cfg.offset < 0 {
		return nil, errors.InvalidArgument("negative offset %d", cfg.offset)
	}
	size := int64(types.SizeOf(elem))
	if dims == nil {
		if !src.IsOpen() {
			return nil, errors.ClosedResource(src.Name())
		}
		fileSize, err := src.Size()
		if err != nil {
			return nil, err
		}
		n := int64(0)
		if fileSize > cfg.offset {
			n = (fileSize - cfg.offset) / size
		}
		if n > math.MaxInt {
			return nil, errors.InvalidArgument("file of %d bytes is too large to map", fileSize)
		}
		dims = []int{int(n)}
	}
	count, err := elementCount(dims)
	if err != nil {
		return nil, err
	}
	length, err := byteLength(count, size, cfg.offset)
	if err != nil {
		return nil, err
	}
	b, err := mapFile(src, length, cfg)
	if err != nil {
		return nil, err
	}
	b.elem = elem
	b.dims = append([]int(nil), dims...)
	return b, nil
}

// MapBits maps nbits bit-packed booleans, ceil(nbits/8) bytes of src.
func MapBits(src vfs.File, nbits int, opts ...Option) (*BitArray, error) {
	cfg := newConfig(opts)
	if src == nil {
		return nil, errors.InvalidArgument("nil mapping source")
	}
	if nbits < 0 {
		return nil, errors.InvalidArgument("negative bit count %d", nbits)
	}
	if cfg.offset < 0 {
		return nil, errors.InvalidArgument("negative offset %d", cfg.offset)
	}
	length, err := byteLength(bitBytes(nbits), 1, cfg.offset)
	if err != nil {
		return nil, err
	}
	b, err := mapFile(src, length, cfg)
	if err != nil {
		return nil, err
	}
	b.dims = []int{nbits}
	return &BitArray{buf: b, n: nbits}, nil
}

// MapAnon maps zero-filled memory with no file association. The mapping is
// always writable; WithShared(false) makes it private to this process.
func MapAnon(elem types.Type, dims []int, opts ...Option) (*Buffer, error) {
	cfg := newConfig(opts)
	if !types.IsBits(elem) {
		return nil, errors.InvalidArgument("element type %v does not have a fixed layout", elem)
	}
	if cfg.offset != 0 {
		return nil, errors.InvalidArgument("anonymous mappings take no offset")
	}
	count, err := elementCount(dims)
	if err != nil {
		return nil, err
	}
	length, err := byteLength(count, int64(types.SizeOf(elem)), 0)
	if err != nil {
		return nil, err
	}
	b := newBuffer("anonymous", 0, false, cfg)
	b.anon = true
	b.elem = elem
	b.dims = append([]int(nil), dims...)
	if length > 0 {
		region, err := mapAnon(length, cfg.shared)
		if err != nil {
			return nil, err
		}
		b.region, b.data = region, region[:length]
	}
	b.logMapped(length)
	return b, nil
}

func newBuffer(name string, offset int64, readonly bool, cfg *config) *Buffer {
	id := uuid.New()
	return &Buffer{
		id:       id,
		name:     name,
		offset:   offset,
		readonly: readonly,
		shared:   cfg.shared,
		data:     []byte{},
		logger:   cfg.logger.With(zap.Stringer("buffer", id)),
	}
}

func mapFile(src vfs.File, length int, cfg *config) (*Buffer, error) {
	if !src.IsOpen() {
		return nil, errors.ClosedResource(src.Name())
	}
	if !src.Readable() {
		return nil, errors.InvalidArgument("%s is not open for reading", src.Name())
	}
	readonly := !src.Writable()

	end := cfg.offset + int64(length)
	fileSize, err := src.Size()
	if err != nil {
		return nil, err
	}
	b := newBuffer(src.Name(), cfg.offset, readonly, cfg)
	if end > fileSize {
		switch {
		case !cfg.grow:
			return nil, errors.InvalidArgument("range [%d, %d) exceeds %s of %d bytes",
				cfg.offset, end, src.Name(), fileSize)
		case readonly:
			return nil, errors.InvalidArgument("cannot grow read-only %s to %d bytes", src.Name(), end)
		}
		if err := src.Truncate(end); err != nil {
			return nil, err
		}
		b.logger.Debug("grew backing file",
			zap.String("source", src.Name()), zap.Int64("from", fileSize), zap.Int64("to", end))
	}

	if length > 0 {
		region, delta, err := mapRegion(src.Fd(), cfg.offset, length, readonly, cfg.shared)
		if err != nil {
			return nil, err
		}
		b.region, b.data = region, region[delta:delta+length]
	}
	b.logMapped(length)
	return b, nil
}

func (b *Buffer) logMapped(length int) {
	b.logger.Debug("mapped",
		zap.String("source", b.name),
		zap.Int64("offset", b.offset),
		zap.Int("length", length),
		zap.Bool("readonly", b.readonly),
		zap.Bool("shared", b.shared))
}

// elementCount multiplies dims, rejecting negative extents and overflow.
func elementCount(dims []int) (int64, error) {
	count := int64(1)
	for _, d := range dims {
		if d < 0 {
			return 0, errors.InvalidArgument("negative dimension %d in %v", d, dims)
		}
		if d != 0 && count > math.MaxInt64/int64(d) {
			return 0, errors.InvalidArgument("dimensions %v overflow", dims)
		}
		count *= int64(d)
	}
	return count, nil
}

// byteLength returns count*size, checking that the range starting at offset
// fits in both int64 and an addressable slice.
func byteLength(count, size, offset int64) (int, error) {
	if size > 0 && count > math.MaxInt64/size {
		return 0, errors.InvalidArgument("mapping of %d elements of %d bytes overflows", count, size)
	}
	n := count * size
	if n > math.MaxInt64-offset || n > int64(math.MaxInt-maxPageSize) {
		return 0, errors.InvalidArgument("mapping of %d bytes at offset %d overflows", n, offset)
	}
	return int(n), nil
}

func bitBytes(nbits int) int64 { return (int64(nbits) + 7) / 8 }

// ID identifies the buffer in log output.
func (b *Buffer) ID() uuid.UUID { return b.id }

// Name is the path of the backing file, or "anonymous".
func (b *Buffer) Name() string { return b.name }

// Elem is the element type, nil for bit-packed buffers.
func (b *Buffer) Elem() types.Type { return b.elem }
func (b *Buffer) Dims() []int      { return append([]int(nil), b.dims...) }
func (b *Buffer) Offset() int64    { return b.offset }
func (b *Buffer) Len() int         { return len(b.data) }
func (b *Buffer) ReadOnly() bool   { return b.readonly }
func (b *Buffer) Shared() bool     { return b.shared }
func (b *Buffer) Closed() bool     { return b.closed.Load() }

// Bytes returns the mapped range. Writing to it when ReadOnly faults; use
// WriteAt for checked writes. The slice is invalid after Close.
func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if b.closed.Load() {
		return 0, errors.ClosedResource(b.name)
	}
	if off < 0 {
		return 0, errors.InvalidArgument("negative offset %d", off)
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if b.closed.Load() {
		return 0, errors.ClosedResource(b.name)
	}
	if b.readonly {
		return 0, errors.ReadOnlyViolation(b.name, off)
	}
	if off < 0 || off+int64(len(p)) > int64(len(b.data)) {
		return 0, errors.IndexOutOfBounds(int(off), len(b.data))
	}
	return copy(b.data[off:], p), nil
}

// Sync flushes dirty pages of a writable mapping to the backing store. It is
// a no-op for read-only, anonymous and empty mappings.
func (b *Buffer) Sync() error {
	if b.closed.Load() {
		return errors.ClosedResource(b.name)
	}
	if b.readonly || b.region == nil || b.anon {
		return nil
	}
	return syncRegion(b.region)
}

// Advise passes an access hint to the OS. Failures only affect performance
// and are logged, not returned.
func (b *Buffer) Advise(hint Advice) {
	if b.closed.Load() || b.region == nil {
		return
	}
	if err := adviseRegion(b.region, hint); err != nil {
		b.logger.Debug("advise failed", zap.Stringer("advice", hint), zap.Error(err))
	}
}

// Close releases the mapping. Subsequent calls are no-ops.
func (b *Buffer) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	region := b.region
	b.region, b.data = nil, []byte{}
	if region == nil {
		b.logger.Debug("released empty view")
		return nil
	}
	if err := unmapRegion(region); err != nil {
		b.logger.Warn("unmap failed", zap.Error(err))
		return err
	}
	b.logger.Debug("unmapped", zap.Int("length", len(region)))
	return nil
}
