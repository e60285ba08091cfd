package iomgr

import (
	"math"
	"reflect"
	"strconv"

	"github.com/phusion/zangetsu/internal/errno"
	"github.com/phusion/zangetsu/internal/system"

	"golang.org/x/sys/unix"
)

type OpCode uint8

const (
	OpInvalid OpCode = iota
	OpDataSync
	OpAdvise
	OpPreallocate
	OpFallocate
	OpSyncRange
)

// Params is the one payload shape shared by every op. Flags carries the
// advice code, the fallocate mode or the sync_file_range flags.
type Params struct {
	Fd     int
	Offset int64
	Length int64
	Flags  int
}

type slot uint8

const (
	slotFd slot = iota
	slotOffset
	slotLength
	slotFlags
)

type opInfo struct {
	name      string
	slots     []slot // positional argument layout
	supported func(system.Capabilities) bool
	body      func(p *Params) error
}

var catalog = [...]opInfo{
	OpDataSync: {
		name:      "fdatasync",
		slots:     []slot{slotFd},
		supported: func(c system.Capabilities) bool { return c.DataSync },
		body:      func(p *Params) error { return system.Fdatasync(p.Fd) },
	},
	OpAdvise: {
		name:      "posix_fadvise",
		slots:     []slot{slotFd, slotOffset, slotLength, slotFlags},
		supported: func(c system.Capabilities) bool { return c.Fadvise },
		body: func(p *Params) error {
			return system.Fadvise(p.Fd, p.Offset, p.Length, p.Flags)
		},
	},
	OpPreallocate: {
		name:      "posix_fallocate",
		slots:     []slot{slotFd, slotOffset, slotLength},
		supported: func(c system.Capabilities) bool { return c.PosixFallocate },
		body: func(p *Params) error {
			return system.PosixFallocate(p.Fd, p.Offset, p.Length)
		},
	},
	OpFallocate: {
		name:      "fallocate",
		slots:     []slot{slotFd, slotFlags, slotOffset, slotLength},
		supported: func(c system.Capabilities) bool { return c.Fallocate },
		body: func(p *Params) error {
			return system.Fallocate(p.Fd, p.Flags, p.Offset, p.Length)
		},
	},
	OpSyncRange: {
		name:      "sync_file_range",
		slots:     []slot{slotFd, slotOffset, slotLength, slotFlags},
		supported: func(c system.Capabilities) bool { return c.SyncFileRange },
		body: func(p *Params) error {
			return system.SyncFileRange(p.Fd, p.Offset, p.Length, p.Flags)
		},
	},
}

func Ops() []OpCode {
	return []OpCode{OpDataSync, OpAdvise, OpPreallocate, OpFallocate, OpSyncRange}
}

func (o OpCode) valid() bool {
	return o > OpInvalid && int(o) < len(catalog)
}

func (o OpCode) String() string {
	if !o.valid() {
		return "OpCode(" + strconv.Itoa(int(o)) + ")"
	}
	return catalog[o].name
}

// Arity is the number of arguments the op takes, continuation excluded.
func (o OpCode) Arity() int {
	if !o.valid() {
		return 0
	}
	return len(catalog[o].slots)
}

func Supported(op OpCode, caps system.Capabilities) bool {
	return op.valid() && catalog[op].supported(caps)
}

// Validate checks args against the op's layout and packs them into Params.
// Integers of any Go kind are accepted, as are integral floats since host
// runtimes hand numbers over as float64. Ranges: fd and flags must fit int32,
// offsets and lengths int64.
func Validate(op OpCode, args []any) (Params, error) {
	var p Params
	if !op.valid() {
		return p, errno.InvalidArgument(op.String(), "unknown operation")
	}
	info := &catalog[op]
	if len(args) != len(info.slots) {
		return p, errno.InvalidArgument(info.name, "want %d arguments, got %d", len(info.slots), len(args))
	}

	for i, s := range info.slots {
		v, ok := toInt64(args[i])
		if !ok {
			return p, errno.InvalidArgument(info.name, "argument %d: %T is not an integer", i, args[i])
		}
		switch s {
		case slotFd:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return p, errno.InvalidArgument(info.name, "argument %d: fd %d out of range", i, v)
			}
			p.Fd = int(v)
		case slotFlags:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return p, errno.InvalidArgument(info.name, "argument %d: flags %d out of range", i, v)
			}
			p.Flags = int(v)
		case slotOffset:
			p.Offset = v
		case slotLength:
			p.Length = v
		}
	}
	return p, nil
}

func toInt64(arg any) (int64, bool) {
	if arg == nil {
		return 0, false
	}
	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

// Execute runs the descriptor's blocking body on the current goroutine and
// records the outcome. It is the default Executor.
func Execute(d *Descriptor) {
	if !d.Op.valid() {
		d.Complete(unix.EINVAL)
		return
	}
	err := catalog[d.Op].body(&d.Params)
	d.Complete(errno.FromError(err))
}
