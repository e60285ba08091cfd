package iomgr

import (
	"encoding/binary"
	"errors"
	"log/slog"

	"github.com/phusion/zangetsu/internal/util"

	"github.com/cespare/xxhash"
	"golang.org/x/sync/errgroup"
)

const MAX_WORKERS = 0x100

var (
	ErrClosed     = errors.New("iomgr: closed")
	ErrBadWorkers = errors.New("iomgr: worker count out of range")
)

type Affinity uint8

const (
	// every worker pulls from one queue
	AffinityShared Affinity = iota
	// one queue per worker, picked by fd hash, so ops on one fd keep their order
	AffinityFd
)

// Backend accepts descriptors for off-goroutine execution.
type Backend interface {
	Submit(d *Descriptor) error
	Close() error
}

type PoolConfig struct {
	Workers  int
	Affinity Affinity
}

// Pool runs descriptors on a fixed set of goroutines. Each worker handles
// its descriptors in the order it pops them; across workers nothing is
// ordered, two outstanding descriptors can complete in either order.
type Pool struct {
	log   *slog.Logger
	exec  Executor
	sink  Sink
	boxes []*util.Mailbox[*Descriptor]
	group errgroup.Group
}

func CreatePool(cfg PoolConfig, exec Executor, sink Sink) (*Pool, error) {
	if cfg.Workers < 1 || cfg.Workers > MAX_WORKERS {
		return nil, ErrBadWorkers
	}
	if exec == nil {
		exec = Execute
	}
	log := slog.With("src", "Pool")

	nboxes := 1
	if cfg.Affinity == AffinityFd {
		nboxes = cfg.Workers
	}
	boxes := make([]*util.Mailbox[*Descriptor], nboxes)
	for i := range boxes {
		boxes[i] = util.CreateMailbox[*Descriptor]()
	}

	p := &Pool{
		log:   log,
		exec:  exec,
		sink:  sink,
		boxes: boxes,
	}
	for w := range cfg.Workers {
		box := boxes[w%nboxes]
		p.group.Go(func() error { return p.worker(w, box) })
	}
	log.Debug("CreatePool", "workers", cfg.Workers, "queues", nboxes)
	return p, nil
}

func (p *Pool) route(d *Descriptor) *util.Mailbox[*Descriptor] {
	if len(p.boxes) == 1 {
		return p.boxes[0]
	}
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], uint64(d.Params.Fd))
	return p.boxes[xxhash.Sum64(key[:])%uint64(len(p.boxes))]
}

// Submit never blocks. The pool owns d from here until it hands it to the sink.
func (p *Pool) Submit(d *Descriptor) error {
	if !p.route(d).Push(d) {
		return ErrClosed
	}
	return nil
}

func (p *Pool) worker(id int, box *util.Mailbox[*Descriptor]) error {
	for {
		if d, ok := box.TryPop(); ok {
			p.exec(d)
			if d.State() == StateFailed {
				p.log.Debug("op failed", "worker", id, "desc", d)
			}
			p.sink(d)
			continue
		}
		if box.Done() {
			return nil
		}
		select {
		case <-box.Notify():
		case <-box.Closed():
		}
	}
}

// Close stops intake and waits for queued descriptors to finish.
func (p *Pool) Close() error {
	for _, box := range p.boxes {
		box.Close()
	}
	return p.group.Wait()
}
