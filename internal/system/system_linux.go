//go:build linux

package system

import "golang.org/x/sys/unix"

const (
	HAVE_FADVISE         = true
	HAVE_POSIX_FALLOCATE = true
	HAVE_FALLOCATE       = true
	HAVE_SYNC_FILE_RANGE = true
)

const (
	POSIX_FADV_NORMAL     = unix.FADV_NORMAL
	POSIX_FADV_SEQUENTIAL = unix.FADV_SEQUENTIAL
	POSIX_FADV_RANDOM     = unix.FADV_RANDOM
	POSIX_FADV_WILLNEED   = unix.FADV_WILLNEED
	POSIX_FADV_DONTNEED   = unix.FADV_DONTNEED
	POSIX_FADV_NOREUSE    = unix.FADV_NOREUSE

	FALLOC_FL_KEEP_SIZE  = unix.FALLOC_FL_KEEP_SIZE
	FALLOC_FL_PUNCH_HOLE = unix.FALLOC_FL_PUNCH_HOLE
	FALLOC_FL_ZERO_RANGE = unix.FALLOC_FL_ZERO_RANGE

	SYNC_FILE_RANGE_WAIT_BEFORE = unix.SYNC_FILE_RANGE_WAIT_BEFORE
	SYNC_FILE_RANGE_WRITE       = unix.SYNC_FILE_RANGE_WRITE
	SYNC_FILE_RANGE_WAIT_AFTER  = unix.SYNC_FILE_RANGE_WAIT_AFTER
)

var constants = map[string]int{
	"POSIX_FADV_NORMAL":           POSIX_FADV_NORMAL,
	"POSIX_FADV_SEQUENTIAL":       POSIX_FADV_SEQUENTIAL,
	"POSIX_FADV_RANDOM":           POSIX_FADV_RANDOM,
	"POSIX_FADV_WILLNEED":         POSIX_FADV_WILLNEED,
	"POSIX_FADV_DONTNEED":         POSIX_FADV_DONTNEED,
	"POSIX_FADV_NOREUSE":          POSIX_FADV_NOREUSE,
	"FALLOC_FL_KEEP_SIZE":         FALLOC_FL_KEEP_SIZE,
	"FALLOC_FL_PUNCH_HOLE":        FALLOC_FL_PUNCH_HOLE,
	"FALLOC_FL_ZERO_RANGE":        FALLOC_FL_ZERO_RANGE,
	"SYNC_FILE_RANGE_WAIT_BEFORE": SYNC_FILE_RANGE_WAIT_BEFORE,
	"SYNC_FILE_RANGE_WRITE":       SYNC_FILE_RANGE_WRITE,
	"SYNC_FILE_RANGE_WAIT_AFTER":  SYNC_FILE_RANGE_WAIT_AFTER,
}

func Fdatasync(fd int) error {
	return unix.Fdatasync(fd)
}

func Fadvise(fd int, offset int64, length int64, advice int) error {
	return unix.Fadvise(fd, offset, length, advice)
}

// swapped in tests to simulate filesystems without fallocate(2)
var fallocate = unix.Fallocate

// PosixFallocate is fallocate(2) with mode 0, falling back to writing a zero
// byte into every unallocated block where the filesystem lacks fallocate.
func PosixFallocate(fd int, offset int64, length int64) error {
	err := fallocate(fd, 0, offset, length)
	if err != unix.EOPNOTSUPP {
		return err
	}
	return writeZeroes(fd, offset, length)
}

func Fallocate(fd int, mode int, offset int64, length int64) error {
	return fallocate(fd, uint32(mode), offset, length)
}

func SyncFileRange(fd int, offset int64, nbytes int64, flags int) error {
	return unix.SyncFileRange(fd, offset, nbytes, flags)
}
