// Package dispatch lets a single-goroutine caller run file control syscalls
// either inline or on a worker pool.
//
// Every call validates its arguments first. Without a continuation the
// syscall runs on the calling goroutine and its error is returned. With one,
// the call returns at once and the continuation later runs exactly once
// from Drain, on the goroutine that owns the dispatcher, with the same error
// the inline call would have returned.
//
// Outstanding() counts continuations that have not run yet. A scheduler
// should keep draining while it is non-zero.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/phusion/zangetsu/internal/config"
	"github.com/phusion/zangetsu/internal/errno"
	"github.com/phusion/zangetsu/internal/iomgr"
	"github.com/phusion/zangetsu/internal/system"
	"github.com/phusion/zangetsu/internal/util"

	"github.com/negrel/assert"
	"golang.org/x/sys/unix"
)

type Continuation = iomgr.Continuation

var (
	ErrClosed         = iomgr.ErrClosed
	ErrWrongGoroutine = errors.New("dispatch: drain called off the owner goroutine")
	ErrWaitReentrant  = errors.New("dispatch: Wait called from a continuation")
)

type Dispatcher struct {
	log     *slog.Logger
	caps    system.Capabilities
	exec    iomgr.Executor
	backend iomgr.Backend

	completions *util.Mailbox[*iomgr.Descriptor]
	outstanding atomic.Int64
	closed      atomic.Bool

	// owner goroutine only
	owner    atomic.Uint64
	draining bool
}

type options struct {
	cfg  config.Config
	caps system.Capabilities
	log  *slog.Logger
	exec iomgr.Executor
}

type Option func(*options)

func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithCapabilities replaces the platform capabilities, e.g. to mask ops.
func WithCapabilities(caps system.Capabilities) Option {
	return func(o *options) { o.caps = caps }
}

func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithExecutor swaps the blocking bodies for both call modes.
// The io_uring backend bypasses it.
func WithExecutor(exec iomgr.Executor) Option {
	return func(o *options) { o.exec = exec }
}

func New(opts ...Option) (*Dispatcher, error) {
	o := options{
		cfg:  config.Default(),
		caps: system.Platform(),
		exec: iomgr.Execute,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.exec == nil {
		o.exec = iomgr.Execute
	}

	d := &Dispatcher{
		log:         o.log.With("src", "Dispatcher"),
		caps:        o.caps,
		exec:        o.exec,
		completions: util.CreateMailbox[*iomgr.Descriptor](),
	}

	affinity := iomgr.AffinityShared
	if o.cfg.Affinity == config.AFFINITY_FD {
		affinity = iomgr.AffinityFd
	}
	pool, err := iomgr.CreatePool(iomgr.PoolConfig{Workers: o.cfg.Workers, Affinity: affinity}, o.exec, d.complete)
	if err != nil {
		return nil, err
	}
	d.backend = pool

	if o.cfg.Backend == config.BACKEND_URING {
		ring, err := iomgr.CreateRing(o.cfg.RingEntries, pool, d.complete)
		if err != nil {
			d.log.Warn("io_uring unavailable, using worker pool", "err", err)
		} else {
			d.backend = ring
		}
	}

	d.log.Debug("New", "workers", o.cfg.Workers, "affinity", o.cfg.Affinity, "backend", o.cfg.Backend)
	return d, nil
}

// Capabilities is the copy this dispatcher decides support with.
func (d *Dispatcher) Capabilities() system.Capabilities {
	return d.caps
}

// complete is the executors' sink; it runs on worker goroutines.
func (d *Dispatcher) complete(desc *iomgr.Descriptor) {
	if !d.completions.Push(desc) {
		// completions is never closed
		panic("dispatch: completion queue closed")
	}
}

// Call runs op with args. cont == nil runs it now on this goroutine and
// returns its error. Otherwise the op is queued, Call returns nil, and cont
// receives the result from a later Drain. Argument errors are returned
// synchronously in both modes.
func (d *Dispatcher) Call(op iomgr.OpCode, args []any, cont Continuation) error {
	params, err := iomgr.Validate(op, args)
	if err != nil {
		return err
	}
	if cont == nil {
		return d.callSync(op, params)
	}
	return d.callAsync(op, params, cont)
}

// Invoke is Call for host glue: a trailing func(error) argument is the
// continuation. A trailing nil in the continuation position means there is
// none and the call runs inline.
func (d *Dispatcher) Invoke(op iomgr.OpCode, args ...any) error {
	var cont Continuation
	if n := len(args); n > 0 {
		switch fn := args[n-1].(type) {
		case func(error):
			cont, args = fn, args[:n-1]
		case Continuation:
			cont, args = fn, args[:n-1]
		case nil:
			if n == op.Arity()+1 {
				args = args[:n-1]
			}
		}
	}
	return d.Call(op, args, cont)
}

func (d *Dispatcher) callSync(op iomgr.OpCode, params iomgr.Params) error {
	if !iomgr.Supported(op, d.caps) {
		return errno.Unsupported(op.String())
	}
	desc := iomgr.NewDescriptor(op, params, nil)
	d.exec(desc)
	return errno.FromErrno(op.String(), desc.Errno())
}

func (d *Dispatcher) callAsync(op iomgr.OpCode, params iomgr.Params, cont Continuation) error {
	if d.closed.Load() {
		return ErrClosed
	}
	desc := iomgr.NewDescriptor(op, params, cont)
	d.outstanding.Add(1)

	if !iomgr.Supported(op, d.caps) {
		// still delivered through Drain, never thrown here
		desc.Complete(unix.ENOSYS)
		d.complete(desc)
		return nil
	}
	if err := d.backend.Submit(desc); err != nil {
		d.outstanding.Add(-1)
		return err
	}
	return nil
}

// Outstanding is the keepalive count: async calls whose continuation has not
// returned yet. Safe from any goroutine.
func (d *Dispatcher) Outstanding() int64 {
	return d.outstanding.Load()
}

func (d *Dispatcher) Idle() bool {
	return d.Outstanding() == 0
}

// Ready fires when completions may be waiting. Meant for the owner's select.
func (d *Dispatcher) Ready() <-chan struct{} {
	return d.completions.Notify()
}

// Drain runs the continuations of every descriptor completed so far and
// returns how many ran. It never blocks. The first goroutine to call it owns
// the dispatcher; any other goroutine panics with ErrWrongGoroutine. A Drain
// from inside a continuation returns 0.
//
// A panicking continuation is not recovered: it is logged and propagates to
// the caller of Drain.
func (d *Dispatcher) Drain() int {
	d.checkOwner()
	if d.draining {
		return 0
	}
	d.draining = true
	defer func() { d.draining = false }()

	// bounded so a steady stream of completions can't starve the caller
	budget := d.completions.Len()
	n := 0
	for n < budget {
		desc, ok := d.completions.TryPop()
		if !ok {
			break
		}
		d.deliver(desc)
		n++
	}
	return n
}

func (d *Dispatcher) deliver(desc *iomgr.Descriptor) {
	name := desc.Op.String()
	cont := desc.TakeContinuation()
	err := errno.FromErrno(name, desc.Errno())

	defer func() {
		left := d.outstanding.Add(-1)
		assert.GreaterOrEqual(left, int64(0), "outstanding counter went negative")
		desc.Release()
		if r := recover(); r != nil {
			// the re-panic below loses the continuation's frames
			d.log.Error("continuation panicked", "op", name, "panic", r, "stack", string(debug.Stack()))
			panic(r)
		}
	}()

	cont(err)
}

// Wait drains until nothing is outstanding or ctx ends. It cannot be used
// from inside a continuation, which is itself still outstanding.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.checkOwner()
	if d.draining {
		return ErrWaitReentrant
	}
	for {
		d.Drain()
		if d.Idle() {
			return nil
		}
		select {
		case <-d.completions.Notify():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close refuses further async calls and stops the executors once queued work
// has run. Completed continuations stay drainable. Sync calls keep working.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closed.Store(true)
	done := make(chan error, 1)
	go func() { done <- d.backend.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
