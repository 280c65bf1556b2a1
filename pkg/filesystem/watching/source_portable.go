package watching

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/groupcache/lru"

	"github.com/mutagen-io/treewatch/pkg/logging"
)

const (
	// portableRetiredCapacity is the maximum number of retired watch paths
	// tracked for duplicate suppression.
	portableRetiredCapacity = 256
)

// portableSource implements Source on top of fsnotify. Since fsnotify reports
// events by path rather than by watch, records are synthesized by resolving
// each event's parent directory to the handle that was assigned when it was
// watched.
type portableSource struct {
	// logger is the source logger.
	logger *logging.Logger
	// watcher is the underlying fsnotify watcher.
	watcher *fsnotify.Watcher
	// ready is signalled when records become available.
	ready chan struct{}
	// cancel is signalled by Signal.
	cancel chan struct{}
	// done is closed when the forwarding Goroutine exits.
	done chan struct{}
	// limit is the maximum number of pending records.
	limit int

	// lock serializes access to the fields below.
	lock sync.Mutex
	// closed indicates whether or not the source has been closed.
	closed bool
	// nextHandle is the next handle to assign.
	nextHandle Handle
	// handles maps watched paths to their handles.
	handles map[string]Handle
	// paths maps handles to watched paths.
	paths map[Handle]string
	// retired tracks watched paths whose removal has already been reported to
	// their parent, since fsnotify reports such removals twice.
	retired *lru.Cache
	// pending are the records awaiting Read.
	pending []Record
	// overflowed indicates whether or not records were dropped since the last
	// Read.
	overflowed bool
}

// openPortableSource creates a new fsnotify-based event source.
func openPortableSource(options SourceOptions) (Source, error) {
	// Create the underlying watcher.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create fsnotify watcher: %w", classify(err))
	}

	// Compute the pending record limit.
	limit := options.readBufferSize() / recordSizeEstimate
	if limit < 1 {
		limit = 1
	}

	// Create the source.
	source := &portableSource{
		logger:     options.Logger,
		watcher:    watcher,
		ready:      make(chan struct{}, 1),
		cancel:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		limit:      limit,
		nextHandle: 1,
		handles:    make(map[string]Handle),
		paths:      make(map[Handle]string),
		retired:    lru.New(portableRetiredCapacity),
	}

	// Start forwarding events.
	go source.forward()

	// Success.
	return source, nil
}

// forward relays events and errors from the underlying watcher until it's
// closed.
func (s *portableSource) forward() {
	defer close(s.done)
	events, errs := s.watcher.Events, s.watcher.Errors
	for events != nil || errs != nil {
		select {
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.translate(event)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				s.lock.Lock()
				s.enqueue(Record{Handle: overflowHandle, Mask: MaskOverflow})
				s.lock.Unlock()
				s.notify()
			} else {
				s.logger.Warnf("fsnotify error: %v", err)
			}
		}
	}
}

// translate converts an fsnotify event into zero or more records.
func (s *portableSource) translate(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	// Determine directory status for creations and modifications up front,
	// outside of the lock.
	var isDir bool
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		if info, err := os.Stat(path); err == nil {
			isDir = info.IsDir()
		}
	}

	// Lock the source for the remainder of the translation.
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return
	}
	count := len(s.pending)

	// Handle events that concern a watched directory itself. fsnotify drops
	// its own watch in both cases, so the handle is retired as well.
	if handle, ok := s.handles[path]; ok && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
		isDir = true
		mask := MaskDeleteSelf
		if !event.Has(fsnotify.Remove) {
			mask = MaskMoveSelf
		}
		s.enqueue(Record{Handle: handle, Mask: mask | MaskIsDirectory})
		s.enqueue(Record{Handle: handle, Mask: MaskIgnored})
		delete(s.handles, path)
		delete(s.paths, handle)
		if _, parentWatched := s.handles[filepath.Dir(path)]; parentWatched {
			s.reportToParent(path, event, isDir)
			s.retired.Add(path, nil)
		}
	} else if _, ok := s.retired.Get(path); ok && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
		s.retired.Remove(path)
	} else {
		if event.Has(fsnotify.Create) {
			s.retired.Remove(path)
		}
		s.reportToParent(path, event, isDir)
	}

	// Signal readiness if anything was queued.
	if len(s.pending) != count {
		s.notify()
	}
}

// reportToParent enqueues records for an event relative to the watched parent
// of the affected path, if any. The caller must hold the source lock.
func (s *portableSource) reportToParent(path string, event fsnotify.Event, isDir bool) {
	// Resolve the parent handle.
	handle, ok := s.handles[filepath.Dir(path)]
	if !ok {
		return
	}
	name := filepath.Base(path)

	// Compute the directory flag.
	var flag Mask
	if isDir {
		flag = MaskIsDirectory
	}

	// Enqueue a record for each operation.
	if event.Has(fsnotify.Create) {
		s.enqueue(Record{Handle: handle, Mask: MaskCreate | flag, Name: name})
	}
	if event.Has(fsnotify.Write) {
		s.enqueue(Record{Handle: handle, Mask: MaskModify | flag, Name: name})
	}
	if event.Has(fsnotify.Remove) {
		s.enqueue(Record{Handle: handle, Mask: MaskDelete | flag, Name: name})
	}
	if event.Has(fsnotify.Rename) {
		s.enqueue(Record{Handle: handle, Mask: MaskMovedFrom | flag, Name: name})
	}
}

// enqueue adds a record to the pending list, replacing excess records with a
// single overflow record. The caller must hold the source lock.
func (s *portableSource) enqueue(record Record) {
	if len(s.pending) >= s.limit {
		if !s.overflowed {
			s.overflowed = true
			s.pending = append(s.pending, Record{Handle: overflowHandle, Mask: MaskOverflow})
		}
		return
	}
	s.pending = append(s.pending, record)
}

// notify performs a non-blocking readiness signal.
func (s *portableSource) notify() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// AddWatch implements Source.AddWatch.
func (s *portableSource) AddWatch(path string) (Handle, error) {
	path = filepath.Clean(path)

	// Check for an existing watch.
	s.lock.Lock()
	if handle, ok := s.handles[path]; ok {
		s.lock.Unlock()
		return handle, nil
	}
	s.lock.Unlock()

	// Establish the watch.
	if err := s.watcher.Add(path); err != nil {
		return 0, classify(err)
	}

	// Assign a handle.
	s.lock.Lock()
	defer s.lock.Unlock()
	handle := s.nextHandle
	s.nextHandle++
	s.handles[path] = handle
	s.paths[handle] = path
	return handle, nil
}

// RemoveWatch implements Source.RemoveWatch.
func (s *portableSource) RemoveWatch(handle Handle) error {
	// Look up and forget the watch.
	s.lock.Lock()
	path, ok := s.paths[handle]
	if ok {
		delete(s.paths, handle)
		delete(s.handles, path)
	}
	s.lock.Unlock()
	if !ok {
		return nil
	}

	// Release the underlying watch.
	if err := s.watcher.Remove(path); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		return fmt.Errorf("unable to remove watch: %w", err)
	}
	return nil
}

// Wait implements Source.Wait.
func (s *portableSource) Wait() (Readiness, error) {
	// Check for cancellation first, since it takes priority.
	select {
	case <-s.cancel:
		return ReadinessCancelled, nil
	default:
	}

	// Wait for either condition.
	select {
	case <-s.cancel:
		return ReadinessCancelled, nil
	case <-s.ready:
		return ReadinessData, nil
	}
}

// Read implements Source.Read.
func (s *portableSource) Read() ([]Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	records := s.pending
	s.pending = nil
	s.overflowed = false
	return records, nil
}

// Signal implements Source.Signal.
func (s *portableSource) Signal() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return
	}
	select {
	case s.cancel <- struct{}{}:
	default:
	}
}

// Close implements Source.Close.
func (s *portableSource) Close() error {
	// Mark the source as closed.
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return nil
	}
	s.closed = true
	s.lock.Unlock()

	// Close the underlying watcher and wait for forwarding to stop.
	err := s.watcher.Close()
	<-s.done
	return err
}
