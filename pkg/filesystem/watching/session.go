package watching

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/mutagen-io/treewatch/pkg/logging"
)

// session is a single watch session. With the exception of its immutable
// fields and registry, it's accessed only from its worker Goroutine.
type session struct {
	// watcher is the owning watcher.
	watcher *Watcher
	// identifier is the session identifier.
	identifier string
	// logger is the session logger.
	logger *logging.Logger
	// root is the absolute watch root path.
	root string
	// backend is the resolved backend.
	backend Backend
	// options are the watcher options in effect when the session started.
	options Options
	// source is the event source. It's set before setup completes.
	source Source
	// registry is the handle registry.
	registry *Registry
	// attacher performs recursive watch registration.
	attacher *Attacher
	// normalizer converts records to events.
	normalizer *Normalizer
	// handlers is the event dispatch table.
	handlers *Handlers
	// queue holds normalized events awaiting dispatch.
	queue EventQueue
	// done is closed when the worker exits.
	done chan struct{}
}

// newSession creates a new session. It doesn't start the worker.
func newSession(watcher *Watcher, root string, options Options) *session {
	identifier := uuid.NewString()
	return &session{
		watcher:    watcher,
		identifier: identifier,
		logger:     options.Logger.Sublogger(identifier),
		root:       root,
		backend:    options.Backend.resolve(),
		options:    options,
		done:       make(chan struct{}),
	}
}

// run is the worker entry point. It performs setup, reports the result, and
// then processes events until signalled or until an unrecoverable error
// occurs. The session's resources are released before done is closed.
func (s *session) run(setup chan<- error) {
	defer close(s.done)

	// Perform setup.
	if err := s.setup(); err != nil {
		s.release()
		setup <- err
		return
	}

	// Publish the session and signal setup completion.
	s.watcher.activate(s)
	setup <- nil

	// Process events.
	err := s.loop()
	s.logger.Debugf("Worker exiting: %v", err)

	// Withdraw the session and release resources.
	s.watcher.deactivate(s, err)
	s.release()
}

// setup opens the event source and establishes the initial watch tree.
func (s *session) setup() error {
	// Create the ignore list.
	ignore, err := NewIgnoreList(s.root, s.options.Ignore, s.options.IgnorePatterns)
	if err != nil {
		return err
	}
	s.registry = NewRegistry(ignore)
	if s.registry.IsIgnored(s.root) {
		return ErrRootIgnored
	}

	// Open the event source.
	source, err := openSource(s.backend, SourceOptions{
		ReadBufferSize: s.options.ReadBufferSize,
		Logger:         s.logger.Sublogger("source"),
	})
	if err != nil {
		return err
	}
	s.source = source

	// Attach the root.
	s.attacher = NewAttacher(source, s.registry, s.forward, s.logger.Sublogger("attach"))
	results, err := s.attacher.Attach(s.root, AttachInitial)
	if err != nil {
		return err
	}
	for _, result := range results {
		s.logger.Debugf("Unable to attach %s: %v", result.Path, result.Err)
	}

	// Create the normalizer.
	rootHandle, err := s.registry.HandleFor(s.root)
	if err != nil {
		return fmt.Errorf("root watch not registered: %w", err)
	}
	s.normalizer = NewNormalizer(s.registry, s.root, rootHandle, s.logger.Sublogger("normalize"))

	// Create the dispatch table.
	s.handlers = NewHandlers()
	s.handlers.Subscribe(KindAny, s.forward)
	s.handlers.Subscribe(KindCreated, s.created)
	s.handlers.Subscribe(KindRemoved, s.removed)
	s.handlers.Subscribe(KindRenamedFrom, s.renamedFrom)
	s.handlers.Subscribe(KindRenamedTo, s.renamedTo)
	s.handlers.Subscribe(KindSelfRemoved, s.invalidated)
	s.handlers.Subscribe(KindSelfMoved, s.invalidated)
	s.handlers.Subscribe(KindIgnored, s.invalidated)
	s.handlers.Subscribe(KindOverflow, s.overflow)

	// Success.
	s.logger.Debugf("Watching %d directories under %s using %s backend",
		s.registry.Len(), s.root, s.backend.Description())
	return nil
}

// release removes all watches and closes the event source.
func (s *session) release() {
	if s.source == nil {
		return
	}
	if s.registry != nil {
		for _, handle := range s.registry.Handles() {
			if err := s.source.RemoveWatch(handle); err != nil {
				s.logger.Debugf("Unable to remove watch: %v", err)
			}
		}
		s.registry.Clear()
	}
	if err := s.source.Close(); err != nil {
		s.logger.Warnf("Unable to close event source: %v", err)
	}
}

// loop is the worker's event processing loop. It always returns a non-nil
// error, which is ErrWatchTerminated if the source was signalled.
func (s *session) loop() error {
	for {
		// Wait for records or cancellation.
		readiness, err := s.source.Wait()
		if err != nil {
			return fmt.Errorf("unable to wait for events: %w", err)
		} else if readiness == ReadinessCancelled {
			return ErrWatchTerminated
		}

		// Read and normalize the available records.
		records, err := s.source.Read()
		if err != nil {
			return fmt.Errorf("unable to read events: %w", err)
		}
		s.normalizer.Drain(records, &s.queue)

		// Dispatch events in order.
		for {
			event, ok := s.queue.Pop()
			if !ok {
				break
			}
			s.logger.Tracef("Event: %s %s (directory: %t)", event.Kind, event.Path, event.IsDir)
			s.handlers.Dispatch(event)
		}
	}
}

// forward translates an event and delivers it to the sink if the session is
// active.
func (s *session) forward(event SystemEvent) {
	// Check whether or not delivery is enabled.
	if deliver, _ := s.watcher.delivering(s); !deliver {
		metricEventsDiscarded.WithLabelValues(discardReasonPaused).Inc()
		return
	}

	// Translate the event.
	code, ok := CodeFor(event)
	if !ok {
		metricEventsDiscarded.WithLabelValues(discardReasonUnclassified).Inc()
		return
	}
	path := event.Path
	if s.options.NormalizeUnicode {
		path = norm.NFC.String(path)
	}

	// Deliver.
	s.watcher.sink.Deliver(Notification{Code: code, Path: path})
	metricEventsDelivered.WithLabelValues(string(code)).Inc()
}

// created handles creation events. New directories are attached so that their
// contents are covered.
func (s *session) created(event SystemEvent) {
	// Drop creations that were already reported synthetically.
	if s.attacher.Consume(event.Path) {
		metricEventsDiscarded.WithLabelValues(discardReasonDuplicate).Inc()
		return
	}

	// Files are forwarded directly.
	if !event.IsDir {
		s.forward(event)
		return
	}

	// Attach the directory. While delivering, the attacher reports the
	// directory once it's watched, followed by its contents.
	mode := AttachLive
	if _, paused := s.watcher.delivering(s); paused {
		mode = AttachSilent
	}
	s.attach(event.Path, mode)
}

// attach attaches a directory and reports any failures.
func (s *session) attach(path string, mode AttachMode) {
	results, err := s.attacher.Attach(path, mode)
	if err != nil {
		if errors.Is(err, ErrPathNotFound) {
			s.logger.Debugf("Directory vanished before attachment: %s", path)
		} else {
			s.watcher.errors.Report(fmt.Errorf("unable to attach %s: %w", path, err))
		}
	}
	s.reportResults(results)
}

// reportResults reports per-entry attachment failures. Only resource
// exhaustion is surfaced to the host, since other failures are the expected
// outcome of concurrent modification.
func (s *session) reportResults(results []AttachResult) {
	for _, result := range results {
		if errors.Is(result.Err, ErrResourceExhaustion) {
			s.watcher.errors.Report(fmt.Errorf("unable to attach %s: %w", result.Path, result.Err))
		} else {
			s.logger.Debugf("Unable to attach %s: %v", result.Path, result.Err)
		}
	}
}

// removed handles removal events.
func (s *session) removed(event SystemEvent) {
	s.attacher.Forget(event.Path)
	s.forward(event)
}

// renamedFrom handles the old half of a rename. A directory renamed away no
// longer lives at its registered paths, so its subtree watches are released.
func (s *session) renamedFrom(event SystemEvent) {
	s.attacher.Forget(event.Path)
	if event.IsDir {
		s.unwatch(event.Path)
	}
	s.forward(event)
}

// renamedTo handles the new half of a rename. A directory renamed into the tree
// is attached without reporting its contents.
func (s *session) renamedTo(event SystemEvent) {
	s.forward(event)
	if event.IsDir {
		s.attach(event.Path, AttachSilent)
	}
}

// unwatch releases the watches for a directory and its subtree.
func (s *session) unwatch(path string) {
	for _, handle := range s.registry.Subtree(path) {
		if err := s.source.RemoveWatch(handle); err != nil {
			s.logger.Debugf("Unable to remove watch: %v", err)
		}
		s.registry.Unregister(handle)
	}
}

// invalidated handles watch invalidation events, which are only meaningful for
// the watch root.
func (s *session) invalidated(event SystemEvent) {
	if !event.Root {
		metricEventsDiscarded.WithLabelValues(discardReasonNonRoot).Inc()
		return
	}
	s.logger.Warnf("Watch root event: %s", event.Kind)
	s.forward(event)
}

// overflow handles queue overflow events.
func (s *session) overflow(event SystemEvent) {
	metricOverflows.Inc()
	s.logger.Warnf("Event queue overflow under %s, events were lost", s.root)
	s.forward(event)
}
