package dispatch

import "github.com/phusion/zangetsu/internal/iomgr"

// DataSync flushes fd's data, and the metadata needed to read it back.
func (d *Dispatcher) DataSync(fd int, cont Continuation) error {
	return d.Call(iomgr.OpDataSync, []any{fd}, cont)
}

// Advise passes an access pattern hint (POSIX_FADV_*) for a byte range.
func (d *Dispatcher) Advise(fd int, offset, length int64, advice int, cont Continuation) error {
	return d.Call(iomgr.OpAdvise, []any{fd, offset, length, advice}, cont)
}

// Preallocate reserves disk space for [offset, offset+length).
func (d *Dispatcher) Preallocate(fd int, offset, length int64, cont Continuation) error {
	return d.Call(iomgr.OpPreallocate, []any{fd, offset, length}, cont)
}

// Fallocate is Preallocate with FALLOC_FL_* mode flags.
func (d *Dispatcher) Fallocate(fd int, mode int, offset, length int64, cont Continuation) error {
	return d.Call(iomgr.OpFallocate, []any{fd, mode, offset, length}, cont)
}

func (d *Dispatcher) SyncRange(fd int, offset, nbytes int64, flags int, cont Continuation) error {
	return d.Call(iomgr.OpSyncRange, []any{fd, offset, nbytes, flags}, cont)
}
