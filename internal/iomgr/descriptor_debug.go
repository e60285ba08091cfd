package iomgr

import (
	"fmt"
	"strings"

	"github.com/phusion/zangetsu/internal/errno"
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Descriptor#%d | %s fd=%d", d.id, d.Op, d.Params.Fd)

	switch d.Op {
	case OpAdvise:
		fmt.Fprintf(&b, " off=0x%x len=0x%x advice=%d", d.Params.Offset, d.Params.Length, d.Params.Flags)
	case OpPreallocate:
		fmt.Fprintf(&b, " off=0x%x len=0x%x", d.Params.Offset, d.Params.Length)
	case OpFallocate:
		fmt.Fprintf(&b, " mode=0x%x off=0x%x len=0x%x", d.Params.Flags, d.Params.Offset, d.Params.Length)
	case OpSyncRange:
		fmt.Fprintf(&b, " off=0x%x nbytes=0x%x flags=0x%x", d.Params.Offset, d.Params.Length, d.Params.Flags)
	}

	fmt.Fprintf(&b, " | %s", d.state)
	if d.state == StateFailed {
		fmt.Fprintf(&b, "(%s)", errno.Translate(d.errno).Name)
	}
	if d.cont != nil {
		b.WriteString(" | async")
	}
	return b.String()
}
