package vfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/lattice/internal/errors"
)

func TestOSFileReadWrite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.bin")
	f, err := Create(p)
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, f.Readable())
	assert.True(t, f.Writable())
	assert.True(t, f.IsOpen())
	assert.Equal(t, p, f.Name())

	_, err = f.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	size, err := f.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	buf := make([]byte, 5)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestOSFileTruncateGrowsWithZeros(t *testing.T) {
	p := filepath.Join(t.TempDir(), "grow.bin")
	require.NoError(t, os.WriteFile(p, []byte{1, 2}, 0o644))
	f, err := OpenFile(p, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Truncate(6))
	buf := make([]byte, 6)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 0, 0, 0, 0}, buf)

	assert.ErrorIs(t, f.Truncate(-1), errors.ErrInvalidArgument)
}

func TestOSFileReadOnly(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ro.bin")
	require.NoError(t, os.WriteFile(p, []byte("abc"), 0o644))
	f, err := Open(p)
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, f.Readable())
	assert.False(t, f.Writable())

	_, err = f.WriteAt([]byte("x"), 1)
	assert.ErrorIs(t, err, errors.ErrReadOnlyViolation)
	assert.ErrorIs(t, f.Truncate(10), errors.ErrReadOnlyViolation)
	assert.NoError(t, f.Sync())
}

func TestOSFileClosed(t *testing.T) {
	f, err := Create(filepath.Join(t.TempDir(), "c.bin"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.False(t, f.IsOpen())

	assert.ErrorIs(t, f.Close(), errors.ErrClosedResource)
	_, err = f.Size()
	assert.ErrorIs(t, err, errors.ErrClosedResource)
	_, err = f.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, errors.ErrClosedResource)
	_, err = f.WriteAt([]byte{1}, 0)
	assert.ErrorIs(t, err, errors.ErrClosedResource)
	assert.ErrorIs(t, f.Sync(), errors.ErrClosedResource)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatchOpString(t *testing.T) {
	assert.Equal(t, "NONE", WatchOp(0).String())
	assert.Equal(t, "WRITE", OpWrite.String())
	assert.Equal(t, "CREATE|REMOVE", (OpCreate | OpRemove).String())
}

func TestPollingWatcher(t *testing.T) {
	p := filepath.Join(t.TempDir(), "w.txt")
	require.NoError(t, os.WriteFile(p, []byte("a"), 0o644))

	w := NewPollingWatcher(20 * time.Millisecond)
	require.NoError(t, w.Add(p))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	w.Start(ctx)
	defer w.Close()

	require.NoError(t, os.WriteFile(p, []byte("abc"), 0o644))
	select {
	case ev := <-w.Events():
		assert.Equal(t, p, ev.Path)
		assert.Equal(t, OpWrite, ev.Op)
	case <-ctx.Done():
		t.Fatal("timeout waiting for poll event")
	}

	require.NoError(t, os.Remove(p))
	select {
	case ev := <-w.Events():
		assert.Equal(t, OpRemove, ev.Op)
	case <-ctx.Done():
		t.Fatal("timeout waiting for remove event")
	}
}

func TestPollingWatcherCloseWithoutStart(t *testing.T) {
	w := NewPollingWatcher(0)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	_, ok := <-w.Events()
	assert.False(t, ok)
}

func TestFSNotifyWatcher(t *testing.T) {
	fw, err := NewFSWatcher()
	if err != nil {
		t.Skip("fsnotify not supported: ", err)
	}
	defer fw.Close()

	dir := t.TempDir()
	require.NoError(t, fw.Add(dir))
	go func() { _ = os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644) }()

	select {
	case ev := <-fw.Events():
		assert.NotEmpty(t, ev.Path)
		assert.NotZero(t, ev.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for fsnotify event")
	}
	require.NoError(t, fw.Close())
	assert.NoError(t, fw.Close())
}
