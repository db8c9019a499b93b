package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireMmap(t *testing.T) {
	t.Helper()
	switch runtime.GOOS {
	case "linux", "darwin", "freebsd":
	default:
		t.Skip("memory mapping not supported on " + runtime.GOOS)
	}
}

// lockedBuffer lets the watch test read output while run is still writing.
type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestPokeAndDump(t *testing.T) {
	requireMmap(t)
	p := filepath.Join(t.TempDir(), "data.bin")

	code, out, errOut := runCLI(t, "poke", "-type", "Int32", p, "2", "-7")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "[2] = -7::Int32")

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Len(t, raw, 12)
	assert.Equal(t, int32(-7), int32(binary.NativeEndian.Uint32(raw[8:])))

	code, out, errOut = runCLI(t, "dump", "-type", "Int32", p)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "12 B of Int32 at offset 0")
	assert.Contains(t, out, "0\t0\n1\t0\n2\t-7\n")
}

func TestDumpBytes(t *testing.T) {
	requireMmap(t)
	p := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(p, []byte("Hello, mapped world"), 0o644))

	code, out, errOut := runCLI(t, "dump", "-offset", "7", "-count", "6", p)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "6 B of UInt8 at offset 7")
	assert.Contains(t, out, "|mapped|")
}

func TestDumpErrors(t *testing.T) {
	p := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(p, []byte{1, 2}, 0o644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"past end without growth", []string{"dump", "-count", "8", p}, "exceeds"},
		{"not a bits type", []string{"dump", "-type", "Real", p}, "fixed layout"},
		{"missing file", []string{"dump", p + ".absent"}, "no such file"},
		{"no file", []string{"dump"}, "dump: wrong number of arguments: 0"},
		{"poke arity", []string{"poke", p, "0"}, "orizon-mmap poke [-type T]"},
		{"bits arity", []string{"bits", p}, "bits: wrong number of arguments: 1"},
		{"unknown command", []string{"peek", p}, `unknown command "peek"`},
		{"bad poke value", []string{"poke", "-type", "UInt8", p, "0", "999"}, "poke"},
		{"bad poke index", []string{"poke", p, "-1", "0"}, "bad index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestPokeWithoutGrowth(t *testing.T) {
	requireMmap(t)
	p := filepath.Join(t.TempDir(), "fixed.bin")
	require.NoError(t, os.WriteFile(p, []byte{0, 0}, 0o644))

	code, _, errOut := runCLI(t, "poke", "-no-grow", p, "4", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "exceeds")

	code, _, errOut = runCLI(t, "poke", "-no-grow", "-type", "Bool", p, "1", "true")
	require.Equal(t, 0, code, errOut)
	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1}, raw)
}

func TestBits(t *testing.T) {
	requireMmap(t)
	p := filepath.Join(t.TempDir(), "bits.bin")

	code, out, errOut := runCLI(t, "bits", p, "12", "0", "5", "11")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "3 of 12 bits set\n", out)

	code, out, errOut = runCLI(t, "bits", p, "12")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "3 of 12 bits set\n", out)

	code, _, errOut = runCLI(t, "bits", p, "12", "12", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `bad bit index "x"`)
}

func TestWatchPolling(t *testing.T) {
	requireMmap(t)
	p := filepath.Join(t.TempDir(), "watched.bin")
	require.NoError(t, os.WriteFile(p, []byte("a"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out lockedBuffer
	var errOut bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"watch", "-poll", "20ms", "-events", "1", p}, &out, &errOut)
	}()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "1 B 61") }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(p, []byte("abc"), 0o644))

	select {
	case code := <-done:
		require.Equal(t, 0, code, errOut.String())
	case <-ctx.Done():
		t.Fatal("watch did not stop after one event")
	}
	assert.Contains(t, out.String(), "3 B 616263")
}

func TestUsage(t *testing.T) {
	code, _, _ := runCLI(t)
	assert.Equal(t, 2, code)
	code, _, _ = runCLI(t, "-log-level", "loud", "dump", "x")
	assert.Equal(t, 1, code)

	t.Run("help on one stream", func(t *testing.T) {
		code, out, errOut := runCLI(t, "-h")
		assert.Equal(t, 0, code)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "Commands:")
		assert.Contains(t, errOut, "watch")
		assert.Contains(t, errOut, "Options:")
		assert.Contains(t, errOut, "-log-level")
	})

	t.Run("command help", func(t *testing.T) {
		code, out, errOut := runCLI(t, "poke", "-h")
		assert.Equal(t, 0, code)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "orizon-mmap poke [-type T]")
		assert.Contains(t, errOut, "-no-grow")
		assert.Contains(t, errOut, "orizon-mmap poke -type Int32 data.bin 3 -7")
		assert.NotContains(t, errOut, "Error:")
	})
}
