//go:build unix

package types

import (
	"errors"

	"golang.org/x/sys/unix"
)

// classifyErrno maps unix errnos that errors.Is does not cover.
func classifyErrno(err error) ErrorKind {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return KindIOError
	}
	switch errno {
	case unix.EACCES, unix.EPERM, unix.EBUSY, unix.ETXTBSY, unix.EROFS:
		return KindAccessDenied
	case unix.ENOENT, unix.ENOTDIR:
		return KindNotFound
	default:
		return KindIOError
	}
}
