package vfs

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/orizon-lang/lattice/internal/errors"
)

// OSFile is a File backed by an *os.File. Access mode is fixed at open time.
type OSFile struct {
	f        *os.File
	readable bool
	writable bool
	closed   atomic.Bool
}

// Open opens name read-only.
func Open(name string) (*OSFile, error) { return OpenFile(name, os.O_RDONLY, 0) }

// Create creates or truncates name for reading and writing.
func Create(name string) (*OSFile, error) {
	return OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
}

// OpenFile opens name with the given os flags, like os.OpenFile.
func OpenFile(name string, flag int, perm os.FileMode) (*OSFile, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, fmt.Errorf("vfs: open %s: %w", name, err)
	}
	return NewOSFile(f, flag), nil
}

// NewOSFile wraps an already open file. flag must describe how f was opened.
func NewOSFile(f *os.File, flag int) *OSFile {
	acc := flag & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR)
	return &OSFile{
		f:        f,
		readable: acc == os.O_RDONLY || acc == os.O_RDWR,
		writable: acc == os.O_WRONLY || acc == os.O_RDWR,
	}
}

func (o *OSFile) Name() string   { return o.f.Name() }
func (o *OSFile) Fd() uintptr    { return o.f.Fd() }
func (o *OSFile) Readable() bool { return o.readable }
func (o *OSFile) Writable() bool { return o.writable }
func (o *OSFile) IsOpen() bool   { return !o.closed.Load() }

func (o *OSFile) Size() (int64, error) {
	if !o.IsOpen() {
		return 0, errors.ClosedResource(o.Name())
	}
	info, err := o.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("vfs: stat %s: %w", o.Name(), err)
	}
	return info.Size(), nil
}

func (o *OSFile) Truncate(size int64) error {
	switch {
	case !o.IsOpen():
		return errors.ClosedResource(o.Name())
	case !o.writable:
		return errors.ReadOnlyViolation(o.Name(), size)
	case size < 0:
		return errors.InvalidArgument("negative size %d", size)
	}
	if err := o.f.Truncate(size); err != nil {
		return fmt.Errorf("vfs: truncate %s: %w", o.Name(), err)
	}
	return nil
}

func (o *OSFile) ReadAt(p []byte, off int64) (int, error) {
	if !o.IsOpen() {
		return 0, errors.ClosedResource(o.Name())
	}
	n, err := o.f.ReadAt(p, off)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("vfs: read %s: %w", o.Name(), err)
	}
	return n, err
}

func (o *OSFile) WriteAt(p []byte, off int64) (int, error) {
	if !o.IsOpen() {
		return 0, errors.ClosedResource(o.Name())
	}
	if !o.writable {
		return 0, errors.ReadOnlyViolation(o.Name(), off)
	}
	n, err := o.f.WriteAt(p, off)
	if err != nil {
		err = fmt.Errorf("vfs: write %s: %w", o.Name(), err)
	}
	return n, err
}

func (o *OSFile) Sync() error {
	if !o.IsOpen() {
		return errors.ClosedResource(o.Name())
	}
	if !o.writable {
		return nil
	}
	return o.f.Sync()
}

// Close closes the file. Closing an already closed file reports ClosedResource.
func (o *OSFile) Close() error {
	if !o.closed.CompareAndSwap(false, true) {
		return errors.ClosedResource(o.Name())
	}
	return o.f.Close()
}

var _ File = (*OSFile)(nil)
