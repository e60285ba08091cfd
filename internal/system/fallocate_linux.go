//go:build linux

package system

import (
	"math"

	"golang.org/x/sys/unix"
)

const (
	ZERO_STRIDE_MIN = 0x200
	ZERO_STRIDE_MAX = 0x1000
)

// writeZeroes reserves [offset, offset+length) the way glibc does when
// fallocate(2) is missing: one byte per block, skipping blocks that already
// hold data. Racy against concurrent writers, same as glibc.
func writeZeroes(fd int, offset int64, length int64) error {
	if offset < 0 || length < 0 {
		return unix.EINVAL
	}
	if offset > math.MaxInt64-length {
		return unix.EFBIG
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return err
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
	case unix.S_IFIFO:
		return unix.ESPIPE
	default:
		return unix.ENODEV
	}

	if length == 0 {
		if st.Size < offset {
			return unix.Ftruncate(fd, offset)
		}
		return nil
	}

	stride := int64(st.Blksize)
	if stride <= 0 {
		stride = ZERO_STRIDE_MIN
	}
	stride = min(stride, ZERO_STRIDE_MAX)

	// the last byte written is always offset+length-1, so the size ends up
	// covering the whole range
	zero := []byte{0}
	var cur [1]byte
	for off := offset + (length-1)%stride; length > 0; off += stride {
		length -= stride
		if off < st.Size {
			n, err := unix.Pread(fd, cur[:], off)
			if err != nil {
				return err
			}
			if n == 1 && cur[0] != 0 {
				continue
			}
		}
		n, err := unix.Pwrite(fd, zero, off)
		if err != nil {
			return err
		}
		if n != 1 {
			return unix.EIO
		}
	}
	return nil
}
