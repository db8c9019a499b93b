// Package vfs defines the backing-store contract consumed by mapped views and
// the file watchers used to react to changes of mapped files.
package vfs

import (
	"io"
	"time"
)

// File is an open backing store for a memory mapping.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Name reports the path the file was opened with.
	Name() string
	// Fd returns the OS descriptor. It is only meaningful while IsOpen.
	Fd() uintptr
	// Size reports the current length of the file in bytes.
	Size() (int64, error)
	// Truncate changes the length of the file. Growth fills with zero bytes.
	Truncate(size int64) error
	Sync() error

	Readable() bool
	Writable() bool
	IsOpen() bool
}

// WatchOp indicates a change operation in the filesystem.
type WatchOp uint32

const (
	OpCreate WatchOp = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

func (op WatchOp) String() string {
	names := []struct {
		op   WatchOp
		name string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpRemove, "REMOVE"},
		{OpRename, "RENAME"},
		{OpChmod, "CHMOD"},
	}
	s := ""
	for _, n := range names {
		if op&n.op == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n.name
	}
	if s == "" {
		return "NONE"
	}
	return s
}

// Event describes a filesystem change event.
type Event struct {
	Path string
	Op   WatchOp
	Time time.Time
}

// Watcher provides a platform-independent file watching API.
type Watcher interface {
	Events() <-chan Event
	Errors() <-chan error
	Add(name string) error
	Remove(name string) error
	Close() error
}
