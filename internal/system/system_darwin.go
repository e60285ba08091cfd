//go:build darwin

package system

import "golang.org/x/sys/unix"

const (
	HAVE_FADVISE         = false
	HAVE_POSIX_FALLOCATE = false
	HAVE_FALLOCATE       = false
	HAVE_SYNC_FILE_RANGE = false
)

var constants = map[string]int{}

// fsync on darwin only reaches the drive cache, F_FULLFSYNC flushes it.
func Fdatasync(fd int) error {
	if err := unix.Fsync(fd); err != nil {
		return err
	}
	_, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
	return err
}

func Fadvise(fd int, offset int64, length int64, advice int) error {
	return unix.ENOSYS
}

func PosixFallocate(fd int, offset int64, length int64) error {
	return unix.ENOSYS
}

func Fallocate(fd int, mode int, offset int64, length int64) error {
	return unix.ENOSYS
}

func SyncFileRange(fd int, offset int64, nbytes int64, flags int) error {
	return unix.ENOSYS
}
