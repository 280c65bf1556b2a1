//go:build !linux

package watching

import (
	"errors"
	"syscall"
)

// isNotFound determines whether or not an error indicates that a path (or one
// of its components) doesn't exist as expected.
func isNotFound(err error) bool {
	return errors.Is(err, syscall.ENOTDIR)
}

// isResourceExhaustion determines whether or not an error indicates that a
// watch or descriptor limit was reached.
func isResourceExhaustion(err error) bool {
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ENOSPC)
}
