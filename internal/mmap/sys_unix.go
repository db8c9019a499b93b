//go:build linux || darwin || freebsd

package mmap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

var pageSize = int64(unix.Getpagesize())

// mapRegion maps length bytes of fd starting at off. The OS mapping starts at
// the page boundary below off; delta is the position of off within it.
func mapRegion(fd uintptr, off int64, length int, readonly, shared bool) (region []byte, delta int, err error) {
	aligned := off - off%pageSize
	delta = int(off - aligned)
	prot := unix.PROT_READ
	if !readonly {
		prot |= unix.PROT_WRITE
	}
	flags := unix.MAP_SHARED
	if !shared {
		flags = unix.MAP_PRIVATE
	}
	region, err = unix.Mmap(int(fd), aligned, length+delta, prot, flags)
	if err != nil {
		return nil, 0, fmt.Errorf("mmap: map %d bytes at %d: %w", length+delta, aligned, err)
	}
	return region, delta, nil
}

func mapAnon(length int, shared bool) ([]byte, error) {
	flags := unix.MAP_ANON | unix.MAP_SHARED
	if !shared {
		flags = unix.MAP_ANON | unix.MAP_PRIVATE
	}
	region, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, fmt.Errorf("mmap: map %d anonymous bytes: %w", length, err)
	}
	return region, nil
}

func unmapRegion(region []byte) error {
	if err := unix.Munmap(region); err != nil {
		return fmt.Errorf("mmap: unmap: %w", err)
	}
	return nil
}

func syncRegion(region []byte) error {
	if err := unix.Msync(region, unix.MS_SYNC); err != nil {
		return fmt.Errorf("mmap: sync: %w", err)
	}
	return nil
}

var adviceFlags = map[Advice]int{
	AdviceNormal:     unix.MADV_NORMAL,
	AdviceRandom:     unix.MADV_RANDOM,
	AdviceSequential: unix.MADV_SEQUENTIAL,
	AdviceWillNeed:   unix.MADV_WILLNEED,
	AdviceDontNeed:   unix.MADV_DONTNEED,
}

func adviseRegion(region []byte, hint Advice) error {
	flag, ok := adviceFlags[hint]
	if !ok {
		return fmt.Errorf("mmap: unknown advice %d", int(hint))
	}
	return unix.Madvise(region, flag)
}
