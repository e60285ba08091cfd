package iomgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func Test_Descriptor_Complete_Once(t *testing.T) {
	d := NewDescriptor(OpDataSync, Params{Fd: 3}, nil)
	assert.Equal(t, StatePending, d.State())

	d.Complete(unix.EIO)
	assert.Equal(t, StateFailed, d.State())
	assert.Equal(t, unix.EIO, d.Errno())

	assert.Panics(t, func() { d.Complete(0) })
	assert.Equal(t, unix.EIO, d.Errno())
}

func Test_Descriptor_Continuation_Taken_Once(t *testing.T) {
	calls := 0
	d := NewDescriptor(OpDataSync, Params{Fd: 3}, func(error) { calls++ })
	assert.True(t, d.Async())

	cont := d.TakeContinuation()
	if assert.NotNil(t, cont) {
		cont(nil)
	}
	assert.Nil(t, d.TakeContinuation())
	assert.False(t, d.Async())
	assert.Equal(t, 1, calls)
}

func Test_Descriptor_Ids_Unique(t *testing.T) {
	a := NewDescriptor(OpDataSync, Params{}, nil)
	b := NewDescriptor(OpDataSync, Params{}, nil)
	assert.NotEqual(t, a.Id(), b.Id())
}

func Test_Descriptor_Release(t *testing.T) {
	d := NewDescriptor(OpFallocate, Params{Fd: 3, Length: 10}, func(error) {})
	d.Complete(0)
	d.TakeContinuation()
	d.Release()
	assert.Equal(t, StateSuccess, d.State())
	assert.Equal(t, Params{}, d.Params)
}

func Test_Descriptor_String(t *testing.T) {
	d := NewDescriptor(OpSyncRange, Params{Fd: 5, Offset: 0x10, Length: 0x20, Flags: 2}, func(error) {})
	s := d.String()
	assert.Contains(t, s, "sync_file_range fd=5")
	assert.Contains(t, s, "nbytes=0x20")
	assert.Contains(t, s, "pending")
	assert.Contains(t, s, "async")

	d.Complete(unix.EBADF)
	assert.Contains(t, d.String(), "failed(EBADF)")

	var nilDesc *Descriptor
	assert.Equal(t, "<nil>", nilDesc.String())
}
