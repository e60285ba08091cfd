//go:build !linux

package iomgr

import "errors"

var ErrNoRing = errors.New("iomgr: io_uring is linux only")

type Ring struct{}

func RingSupports(op OpCode) bool {
	return false
}

func CreateRing(entries uint32, fallback Backend, sink Sink) (*Ring, error) {
	return nil, ErrNoRing
}

func (r *Ring) Submit(d *Descriptor) error {
	return ErrNoRing
}

func (r *Ring) Close() error {
	return nil
}
