package vfs

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/frogfs/frogfs/errs"
)

// Errno maps one of this package's sentinel errors to the POSIX errno
// constant a real esp_vfs_t dispatch table would return in its place
// (frogfs_vfs_open and friends return negative errno values directly,
// per original_source/src/vfs.c). Callers bridging this layer to a
// POSIX-shaped surface — an HTTP status, a FUSE reply, a syscall
// emulation — can use this instead of matching on error strings.
func Errno(err error) unix.Errno {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return unix.ENOENT
	case errors.Is(err, errs.ErrNotSupported):
		return unix.EROFS
	case errors.Is(err, errs.ErrTooManyOpenFiles):
		return unix.EMFILE
	case errors.Is(err, errs.ErrInvalidArgument):
		return unix.EINVAL
	case errors.Is(err, errs.ErrIO):
		return unix.EIO
	default:
		return unix.EIO
	}
}
