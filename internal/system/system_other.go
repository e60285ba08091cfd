//go:build unix && !linux && !darwin

package system

import "golang.org/x/sys/unix"

const (
	HAVE_FADVISE         = false
	HAVE_POSIX_FALLOCATE = false
	HAVE_FALLOCATE       = false
	HAVE_SYNC_FILE_RANGE = false
)

var constants = map[string]int{}

func Fdatasync(fd int) error {
	return unix.Fsync(fd)
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
