package errno

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func Test_Translate(t *testing.T) {
	e := Translate(unix.EBADF)
	assert.Equal(t, int(unix.EBADF), e.Code)
	assert.Equal(t, "EBADF", e.Name)
	assert.Equal(t, unix.EBADF.Error(), e.Message)
	assert.ErrorIs(t, e, unix.EBADF)

	// pure
	assert.Equal(t, e, Translate(unix.EBADF))
}

func Test_Translate_Unknown_Code(t *testing.T) {
	e := Translate(unix.Errno(4000))
	assert.Equal(t, 4000, e.Code)
	assert.Equal(t, "E4000", e.Name)
}

func Test_FromError(t *testing.T) {
	assert.Equal(t, unix.Errno(0), FromError(nil))
	assert.Equal(t, unix.ENOSPC, FromError(unix.ENOSPC))
	assert.Equal(t, unix.ENOSPC, FromError(fmt.Errorf("wrapped: %w", unix.ENOSPC)))
	assert.Equal(t, unix.EIO, FromError(errors.New("opaque")))
}

func Test_FromErrno_Kinds(t *testing.T) {
	assert.NoError(t, FromErrno("fdatasync", 0))

	err := FromErrno("fdatasync", unix.EBADF)
	assert.ErrorIs(t, err, ErrSystem)
	assert.ErrorIs(t, err, unix.EBADF)
	assert.NotErrorIs(t, err, ErrUnsupported)

	var oe *OpError
	if assert.ErrorAs(t, err, &oe) {
		assert.Equal(t, "fdatasync", oe.Op)
		assert.Equal(t, KindSystem, oe.Kind)
		assert.Equal(t, int(unix.EBADF), oe.Code())
	}

	err = FromErrno("fallocate", unix.ENOSYS)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, err, unix.ENOSYS)
	assert.NotErrorIs(t, err, ErrSystem)
}

func Test_Unsupported_Matches_Runtime_ENOSYS(t *testing.T) {
	assert.Equal(t, Unsupported("sync_file_range"), FromErrno("sync_file_range", unix.ENOSYS))
}

func Test_InvalidArgument(t *testing.T) {
	err := InvalidArgument("posix_fadvise", "want %d args, got %d", 4, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 0, err.Code())
	assert.Contains(t, err.Error(), "InvalidArgument")
	assert.Contains(t, err.Error(), "want 4 args, got 2")
}
