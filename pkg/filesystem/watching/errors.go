package watching

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/mutagen-io/treewatch/pkg/logging"
)

var (
	// ErrWatchTerminated indicates that a watch session has been terminated.
	ErrWatchTerminated = errors.New("watch terminated")
	// ErrPathNotFound indicates that a path does not exist.
	ErrPathNotFound = errors.New("path not found")
	// ErrPermissionDenied indicates that access to a path was denied.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrResourceExhaustion indicates that a platform watch limit was reached.
	ErrResourceExhaustion = errors.New("watch resources exhausted")
	// ErrNotDirectory indicates that a watch root is not a directory.
	ErrNotDirectory = errors.New("not a directory")
	// ErrSymbolicLinkCycle indicates that a symbolic link resolves to one of
	// its own ancestor directories.
	ErrSymbolicLinkCycle = errors.New("symbolic link cycle")
	// ErrRootIgnored indicates that a watch root is excluded by the ignore
	// list.
	ErrRootIgnored = errors.New("watch root is ignored")
	// ErrNotStarted indicates that an operation requires a running session.
	ErrNotStarted = errors.New("watcher not started")
	// ErrWatcherClosed indicates that a watcher has been closed.
	ErrWatcherClosed = errors.New("watcher closed")
)

// classify maps a platform error onto the package's error taxonomy. The
// resulting error wraps both the category sentinel and the original error. If
// the error doesn't fall into a known category, it's returned unmodified.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPathNotFound), errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrResourceExhaustion):
		return err
	case errors.Is(err, fs.ErrNotExist), isNotFound(err):
		return fmt.Errorf("%w: %w", ErrPathNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case isResourceExhaustion(err):
		return fmt.Errorf("%w: %w", ErrResourceExhaustion, err)
	default:
		return err
	}
}

// ErrorReporter records the most recent error encountered by a watcher so that
// hosts can poll for it. It is safe for concurrent usage.
type ErrorReporter struct {
	// logger is the logger to which reported errors are written.
	logger *logging.Logger
	// callback is invoked with the message of each reported error.
	callback func(string)
	// lock serializes access to the fields below.
	lock sync.Mutex
	// message is the most recently reported error message.
	message string
	// pending indicates whether or not message hasn't yet been retrieved.
	pending bool
}

// NewErrorReporter creates a new error reporter. The callback may be nil.
func NewErrorReporter(logger *logging.Logger, callback func(string)) *ErrorReporter {
	return &ErrorReporter{
		logger:   logger,
		callback: callback,
	}
}

// Report records an error, replacing any previously recorded one.
func (r *ErrorReporter) Report(err error) {
	if err == nil {
		return
	}
	message := err.Error()

	// Record the error.
	r.lock.Lock()
	r.message = message
	r.pending = true
	callback := r.callback
	r.lock.Unlock()

	// Log the error.
	r.logger.Error(err)

	// Forward the message outside of the lock.
	if callback != nil {
		callback(message)
	}
}

// SetCallback replaces the reporting callback.
func (r *ErrorReporter) SetCallback(callback func(string)) {
	r.lock.Lock()
	r.callback = callback
	r.lock.Unlock()
}

// LastError returns the most recently reported error message and clears it. It
// returns an empty string if no error is pending.
func (r *ErrorReporter) LastError() string {
	r.lock.Lock()
	defer r.lock.Unlock()
	if !r.pending {
		return ""
	}
	message := r.message
	r.message = ""
	r.pending = false
	return message
}

// HasError indicates whether or not an error is pending retrieval.
func (r *ErrorReporter) HasError() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.pending
}
