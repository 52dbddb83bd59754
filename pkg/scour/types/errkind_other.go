//go:build !unix && !windows

package types

func classifyErrno(error) ErrorKind {
	return KindIOError
}
