package watching

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isNotFound determines whether or not an error indicates that a path (or one
// of its components) doesn't exist as expected.
func isNotFound(err error) bool {
	return errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENOTDIR)
}

// isResourceExhaustion determines whether or not an error indicates that a
// kernel watch or descriptor limit was reached.
func isResourceExhaustion(err error) bool {
	return errors.Is(err, unix.ENOSPC) ||
		errors.Is(err, unix.EMFILE) ||
		errors.Is(err, unix.ENFILE) ||
		errors.Is(err, unix.ENOMEM)
}
