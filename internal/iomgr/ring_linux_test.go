//go:build linux

package iomgr

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func createRing(t *testing.T, sink Sink) *Ring {
	t.Helper()
	pool, err := CreatePool(PoolConfig{Workers: 2}, nil, sink)
	require.NoError(t, err)
	return createRingOver(t, 0x10, pool, sink)
}

func createRingOver(t *testing.T, entries uint32, pool *Pool, sink Sink) *Ring {
	t.Helper()
	ring, err := CreateRing(entries, pool, sink)
	if err != nil {
		pool.Close()
		t.Skipf("io_uring unavailable: %v", err)
	}
	return ring
}

func Test_Ring_Supports(t *testing.T) {
	assert.True(t, RingSupports(OpDataSync))
	assert.True(t, RingSupports(OpPreallocate))
	assert.False(t, RingSupports(OpAdvise))
	assert.False(t, RingSupports(OpFallocate))
	assert.False(t, RingSupports(OpSyncRange))
}

func Test_Ring_Datasync_And_Fallback(t *testing.T) {
	f := tempfile(t)
	fd := int(f.Fd())
	sink, done := chanSink(64)
	ring := createRing(t, sink)

	// more than the ring holds at once
	for range 40 {
		require.NoError(t, ring.Submit(NewDescriptor(OpDataSync, Params{Fd: fd}, nil)))
	}
	require.NoError(t, ring.Submit(NewDescriptor(OpDataSync, Params{Fd: -1}, nil)))
	// goes to the pool
	require.NoError(t, ring.Submit(NewDescriptor(OpAdvise, Params{Fd: fd, Flags: unix.FADV_NORMAL}, nil)))

	failed := 0
	for range 42 {
		d := recv(t, done)
		if d.State() == StateFailed {
			assert.Equal(t, unix.EBADF, d.Errno())
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	require.NoError(t, ring.Close())

	assert.ErrorIs(t, ring.Submit(NewDescriptor(OpDataSync, Params{Fd: fd}, nil)), ErrClosed)
}

func Test_Ring_Preallocate(t *testing.T) {
	f := tempfile(t)
	sink, done := chanSink(1)
	ring := createRing(t, sink)
	defer ring.Close()

	require.NoError(t, ring.Submit(NewDescriptor(OpPreallocate, Params{Fd: int(f.Fd()), Length: 8192}, nil)))
	d := recv(t, done)
	if d.Errno() == unix.EOPNOTSUPP || d.Errno() == unix.EINVAL {
		t.Skipf("fallocate through io_uring unsupported here: %v", d.Errno())
	}
	require.Equal(t, StateSuccess, d.State())

	st, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(8192), st.Size())
}

func Test_Ring_Rejected_Preallocate_Reruns_On_Pool(t *testing.T) {
	f := tempfile(t)
	sink, done := chanSink(2)

	var pooled atomic.Int32
	pool, err := CreatePool(PoolConfig{Workers: 1}, func(d *Descriptor) {
		pooled.Add(1)
		Execute(d)
	}, sink)
	require.NoError(t, err)
	ring := createRingOver(t, 0x10, pool, sink)
	defer ring.Close()

	// zero length is EINVAL from both io_uring and fallocate(2)
	require.NoError(t, ring.Submit(NewDescriptor(OpPreallocate, Params{Fd: int(f.Fd()), Length: 0}, nil)))
	d := recv(t, done)
	assert.Equal(t, StateFailed, d.State())
	assert.Equal(t, unix.EINVAL, d.Errno())
	assert.Equal(t, int32(1), pooled.Load())

	// bad fd is final from the ring
	require.NoError(t, ring.Submit(NewDescriptor(OpPreallocate, Params{Fd: -1, Length: 10}, nil)))
	d = recv(t, done)
	assert.Equal(t, unix.EBADF, d.Errno())
	assert.Equal(t, int32(1), pooled.Load())
}

func cpuTime(t *testing.T) time.Duration {
	t.Helper()
	var ru unix.Rusage
	require.NoError(t, unix.Getrusage(unix.RUSAGE_SELF, &ru))
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
}

func Test_Ring_Full_Blocks_Instead_Of_Spinning(t *testing.T) {
	f := tempfile(t)
	fd := int(f.Fd())
	sink, done := chanSink(4)
	pool, err := CreatePool(PoolConfig{Workers: 1}, nil, sink)
	require.NoError(t, err)
	// one entry, so every extra descriptor finds the ring full
	ring := createRingOver(t, 1, pool, sink)
	defer ring.Close()

	chunk := make([]byte, 1<<20)
	var wall, cpu time.Duration
	for range 3 {
		for i := range 64 {
			_, err := f.WriteAt(chunk, int64(i)<<20)
			require.NoError(t, err)
		}

		start, startCpu := time.Now(), cpuTime(t)
		for range 4 {
			require.NoError(t, ring.Submit(NewDescriptor(OpDataSync, Params{Fd: fd}, nil)))
		}
		for range 4 {
			assert.Equal(t, StateSuccess, recv(t, done).State())
		}
		wall += time.Since(start)
		cpu += cpuTime(t) - startCpu
	}

	t.Logf("wall=%v cpu=%v", wall, cpu)
	if wall < 20*time.Millisecond {
		t.Skipf("syncs finished too fast to tell (wall=%v)", wall)
	}
	assert.Less(t, cpu, wall/2, "ring thread spun while full")
}
