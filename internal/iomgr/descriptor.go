package iomgr

import (
	"sync/atomic"

	"github.com/negrel/assert"
	"golang.org/x/sys/unix"
)

type State uint8

const (
	StatePending State = iota
	StateSuccess
	StateFailed
)

type Continuation func(err error)

// Executor runs a descriptor's blocking body and must call Complete on it.
type Executor func(d *Descriptor)

// Sink takes ownership of a completed descriptor.
type Sink func(d *Descriptor)

var nextDescriptorId atomic.Uint64

// A Descriptor has exactly one owner at a time: the dispatcher until Submit,
// the executor until its Sink call, then the completion drain until Release.
// Handoff goes through mailboxes, nothing here is locked.
type Descriptor struct {
	Op     OpCode
	Params Params

	id    uint64
	state State
	errno unix.Errno
	cont  Continuation
}

func NewDescriptor(op OpCode, params Params, cont Continuation) *Descriptor {
	return &Descriptor{
		Op:     op,
		Params: params,
		id:     nextDescriptorId.Add(1),
		cont:   cont,
	}
}

func (d *Descriptor) Id() uint64 {
	return d.id
}

func (d *Descriptor) State() State {
	return d.state
}

// Errno is 0 unless the descriptor failed.
func (d *Descriptor) Errno() unix.Errno {
	return d.errno
}

// Complete moves the result out of pending. Called once, by whoever executed
// the descriptor; a second call is a bug and panics.
func (d *Descriptor) Complete(code unix.Errno) {
	if d.state != StatePending {
		panic("iomgr: descriptor completed twice")
	}
	if code == 0 {
		d.state = StateSuccess
	} else {
		d.state = StateFailed
		d.errno = code
	}
}

// TakeContinuation hands the continuation to the caller and forgets it, so
// it can never be invoked twice through this descriptor.
func (d *Descriptor) TakeContinuation() Continuation {
	cont := d.cont
	d.cont = nil
	return cont
}

func (d *Descriptor) Async() bool {
	return d.cont != nil
}

// Release drops everything the descriptor references. Only valid once the
// result is in and the continuation has been taken.
func (d *Descriptor) Release() {
	assert.GreaterOrEqual(int(d.state), int(StateSuccess), "release of a pending descriptor")
	*d = Descriptor{state: d.state, errno: d.errno, id: d.id}
}
