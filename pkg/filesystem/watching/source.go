package watching

import (
	"fmt"

	"github.com/mutagen-io/treewatch/pkg/logging"
)

// Handle is an opaque identifier assigned by an event source to a directory
// watch.
type Handle int32

// overflowHandle is the handle carried by queue overflow records, which aren't
// associated with any watch.
const overflowHandle Handle = -1

// Record is a raw event record as produced by an event source.
type Record struct {
	// Handle is the watch handle that the record concerns.
	Handle Handle
	// Mask is the raw event mask.
	Mask Mask
	// Cookie associates the two halves of a rename.
	Cookie uint32
	// Name is the name of the affected entry relative to the watched
	// directory. It is empty if the record concerns the watched directory
	// itself.
	Name string
}

// Readiness is the outcome of waiting on an event source.
type Readiness uint8

const (
	// ReadinessData indicates that records are available to be read.
	ReadinessData Readiness = iota
	// ReadinessCancelled indicates that the source was signalled.
	ReadinessCancelled
)

// Source is the platform event source abstraction. With the exception of
// Signal and Close, its methods are only invoked from a single worker
// goroutine.
type Source interface {
	// AddWatch registers a watch on the specified directory and returns its
	// handle. Registering an already watched directory returns the existing
	// handle.
	AddWatch(path string) (Handle, error)
	// RemoveWatch releases a watch. Removing an unknown handle is not an
	// error.
	RemoveWatch(handle Handle) error
	// Wait blocks until either records are available or the source is
	// signalled. Cancellation takes priority over data.
	Wait() (Readiness, error)
	// Read returns all currently available records without blocking. It may
	// return an empty slice if no records are available.
	Read() ([]Record, error)
	// Signal wakes any pending or future call to Wait, which will report
	// ReadinessCancelled. It is safe to call from any goroutine, including
	// after Close.
	Signal()
	// Close releases the source's resources. It is safe to call from any
	// goroutine and is idempotent.
	Close() error
}

const (
	// DefaultReadBufferSize is the default size of the buffer used to read
	// records from an event source.
	DefaultReadBufferSize = 64 * 1024
	// recordSizeEstimate is the approximate size of a single record, used to
	// convert buffer sizes into record counts.
	recordSizeEstimate = 32
)

// SourceOptions configure an event source.
type SourceOptions struct {
	// ReadBufferSize is the size of the read buffer. A value of 0 selects
	// DefaultReadBufferSize.
	ReadBufferSize int
	// Logger is the logger for the source. It may be nil.
	Logger *logging.Logger
}

// readBufferSize returns the effective read buffer size.
func (o SourceOptions) readBufferSize() int {
	if o.ReadBufferSize > 0 {
		return o.ReadBufferSize
	}
	return DefaultReadBufferSize
}

// openSource is the source opener used by sessions. It's a variable so that
// tests can substitute sources.
var openSource = OpenSource

// OpenSource opens an event source using the specified backend.
func OpenSource(backend Backend, options SourceOptions) (Source, error) {
	switch backend = backend.resolve(); backend {
	case BackendInotify:
		return openInotifySource(options)
	case BackendPortable:
		return openPortableSource(options)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend.Description())
	}
}
