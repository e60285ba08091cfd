package dispatch

import "runtime"

func (d *Dispatcher) checkOwner() {
	id := goroutineId()
	if d.owner.CompareAndSwap(0, id) {
		return
	}
	if d.owner.Load() != id {
		panic(ErrWrongGoroutine)
	}
}

// parsed from the "goroutine N [...]" header of runtime.Stack
func goroutineId() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
