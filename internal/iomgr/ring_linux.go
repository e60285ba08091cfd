//go:build linux

package iomgr

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/phusion/zangetsu/internal/util"

	"github.com/aethne0/giouring"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

const RING_FSYNC_DATASYNC = 1 // IORING_FSYNC_DATASYNC

// Ring executes fdatasync and posix_fallocate through io_uring and hands
// every other op to a fallback pool.
type Ring struct {
	log      *slog.Logger
	ring     *giouring.Ring
	entries  int
	box      *util.Mailbox[*Descriptor]
	fallback Backend
	sink     Sink
	group    errgroup.Group
	once     sync.Once
	closeErr error
}

func RingSupports(op OpCode) bool {
	return op == OpDataSync || op == OpPreallocate
}

func CreateRing(entries uint32, fallback Backend, sink Sink) (*Ring, error) {
	ring, err := giouring.CreateRing(entries)
	if err != nil {
		return nil, err
	}

	r := &Ring{
		log:      slog.With("src", "Ring"),
		ring:     ring,
		entries:  int(entries),
		box:      util.CreateMailbox[*Descriptor](),
		fallback: fallback,
		sink:     sink,
	}
	r.group.Go(r.ringlord)
	return r, nil
}

func (r *Ring) Submit(d *Descriptor) error {
	if !RingSupports(d.Op) {
		return r.fallback.Submit(d)
	}
	if !r.box.Push(d) {
		return ErrClosed
	}
	return nil
}

// Close waits for in-flight SQEs, tears the ring down, then closes the fallback.
func (r *Ring) Close() error {
	r.once.Do(func() {
		r.box.Close()
		err := r.group.Wait()
		r.ring.QueueExit()
		if ferr := r.fallback.Close(); err == nil {
			err = ferr
		}
		r.closeErr = err
	})
	return r.closeErr
}

func transient(err error) bool {
	return err == unix.EAGAIN || err == unix.EINTR || err == unix.ETIME || err == unix.EBUSY
}

// The ring goroutine is the only one touching the ring and the inflight map.
//
// Loop phases:
// 1. take descriptors from the mailbox and prepare SQEs, bounded by ring size
// 2. submit
// 3. reap CQEs, and if nothing was reaped and either nothing new arrived or
// the ring is full, block in SubmitAndWait(1)
//
// PERF: a descriptor arriving while we block in SubmitAndWait waits for the
// next completion before it is submitted.
func (r *Ring) ringlord() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	inflight := make(map[uint64]*Descriptor, r.entries)
	var backlog []*Descriptor
	var queued uint // prepared, not yet submitted

	for {
		// STAGE 1
		if len(inflight) == 0 && len(backlog) == 0 {
			if r.box.Done() {
				return nil
			}
			select {
			case <-r.box.Notify():
			case <-r.box.Closed():
			}
		}

		for len(inflight) < r.entries {
			var d *Descriptor
			if len(backlog) > 0 {
				d = backlog[0]
				backlog = backlog[1:]
			} else if next, ok := r.box.TryPop(); ok {
				d = next
			} else {
				break
			}
			sqe := r.ring.GetSQE()
			if sqe == nil {
				backlog = append([]*Descriptor{d}, backlog...)
				break
			}
			switch d.Op {
			case OpDataSync:
				sqe.PrepareFsync(d.Params.Fd, RING_FSYNC_DATASYNC)
			case OpPreallocate:
				sqe.PrepareFallocate(d.Params.Fd, 0, uint64(d.Params.Offset), uint64(d.Params.Length))
			}
			sqe.UserData = d.id
			inflight[d.id] = d
			queued++
		}

		// STAGE 2
		if queued > 0 {
			submitted, err := r.ring.Submit()
			if err != nil && !transient(err) {
				r.log.Error("Submit", "err", err)
			}
			queued -= min(submitted, queued)
		}

		// STAGE 3
		// a full ring can't take from the mailbox, so block even if it is not empty
		full := len(inflight) >= r.entries
		if r.reap(inflight) == 0 && len(inflight) > 0 && (full || r.box.Len() == 0) {
			submitted, err := r.ring.SubmitAndWait(1)
			if err != nil && !transient(err) {
				r.log.Error("SubmitAndWait", "err", err)
			}
			queued -= min(submitted, queued)
			r.reap(inflight)
		}
	}
}

func (r *Ring) reap(inflight map[uint64]*Descriptor) int {
	n := 0
	for len(inflight) > 0 {
		cqe, err := r.ring.PeekCQE()
		if err != nil {
			if !transient(err) {
				r.log.Error("PeekCQE", "err", err)
			}
			break
		}
		if cqe == nil {
			break
		}

		d, ok := inflight[cqe.UserData]
		res := cqe.Res
		r.ring.CQESeen(cqe)
		if !ok {
			r.log.Warn("cqe for unknown descriptor", "id", cqe.UserData)
			continue
		}
		delete(inflight, d.id)

		if d.Op == OpPreallocate && (res == -int32(unix.EOPNOTSUPP) || res == -int32(unix.EINVAL)) {
			// kernels before 5.6 reject IORING_OP_FALLOCATE with EINVAL, and
			// EOPNOTSUPP needs the write-zeroes fallback; the pool runs both
			if err := r.fallback.Submit(d); err == nil {
				n++
				continue
			}
		}

		if res < 0 {
			d.Complete(unix.Errno(-res))
		} else {
			d.Complete(0)
		}
		r.sink(d)
		n++
	}
	return n
}
