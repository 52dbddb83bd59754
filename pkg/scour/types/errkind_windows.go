//go:build windows

package types

import (
	"errors"

	"golang.org/x/sys/windows"
)

// classifyErrno maps Windows error codes for files held open by another
// process to KindAccessDenied.
func classifyErrno(err error) ErrorKind {
	var errno windows.Errno
	if !errors.As(err, &errno) {
		return KindIOError
	}
	switch errno {
	case windows.ERROR_ACCESS_DENIED, windows.ERROR_SHARING_VIOLATION, windows.ERROR_LOCK_VIOLATION:
		return KindAccessDenied
	case windows.ERROR_FILE_NOT_FOUND, windows.ERROR_PATH_NOT_FOUND:
		return KindNotFound
	default:
		return KindIOError
	}
}
