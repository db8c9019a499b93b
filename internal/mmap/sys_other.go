//go:build !(linux || darwin || freebsd)

package mmap

import "github.com/orizon-lang/lattice/internal/errors"

func mapRegion(fd uintptr, off int64, length int, readonly, shared bool) ([]byte, int, error) {
	return nil, 0, errors.Unsupported("memory mapping")
}

func mapAnon(length int, shared bool) ([]byte, error) {
	return nil, errors.Unsupported("anonymous memory mapping")
}

func unmapRegion([]byte) error { return nil }
func syncRegion([]byte) error  { return nil }

func adviseRegion([]byte, Advice) error { return errors.Unsupported("madvise") }
