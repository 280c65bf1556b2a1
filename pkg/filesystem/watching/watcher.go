package watching

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/mutagen-io/treewatch/pkg/logging"
	"github.com/mutagen-io/treewatch/pkg/state"
)

// Options configure a watcher.
type Options struct {
	// Backend selects the event source backend.
	Backend Backend
	// Ignore specifies substrings that exclude any path containing them.
	Ignore []string
	// IgnorePatterns specifies doublestar patterns, relative to the watch
	// root, that exclude matching paths.
	IgnorePatterns []string
	// ReadBufferSize is the event source read buffer size. A value of 0
	// selects DefaultReadBufferSize.
	ReadBufferSize int
	// NormalizeUnicode indicates whether or not delivered paths should be
	// converted to Unicode NFC form.
	NormalizeUnicode bool
	// Logger is the watcher logger. It may be nil, in which case nothing is
	// logged.
	Logger *logging.Logger
	// Tracker receives state change notifications. If nil, the watcher
	// creates its own.
	Tracker *state.Tracker
}

// Watcher manages recursive watch sessions on a directory tree, delivering
// change notifications to a sink. At most one session is running at a time.
// All methods are safe for concurrent usage.
type Watcher struct {
	// logger is the watcher logger.
	logger *logging.Logger
	// sink receives notifications.
	sink Sink
	// errors records reported errors.
	errors *ErrorReporter
	// tracker tracks state changes.
	tracker *state.Tracker
	// stateLock guards and tracks changes to state and current.
	stateLock *state.TrackingLock
	// state is the lifecycle state.
	state State
	// current is the running session, if any. It's visible to the worker
	// Goroutine and to status queries, which don't hold the lifecycle lock.
	current *session
	// lifecycleLock serializes lifecycle operations and guards options,
	// disabled, and session. A worker Goroutine never acquires it, so holders
	// may wait for a worker to exit.
	lifecycleLock sync.Mutex
	// options are the watcher options.
	options Options
	// disabled indicates that the watcher has been closed.
	disabled bool
	// session is the session owned by the lifecycle lock holder. It's non-nil
	// from a successful Start until the corresponding Stop.
	session *session
}

// NewWatcher creates a new idle watcher that delivers notifications to the
// specified sink, which may be nil.
func NewWatcher(sink Sink, options Options) *Watcher {
	// Use a no-op sink if none was provided.
	if sink == nil {
		sink = SinkFunc(func(Notification) {})
	}

	// Create a tracker if necessary.
	tracker := options.Tracker
	if tracker == nil {
		tracker = state.NewTracker()
	}

	// Create the watcher.
	return &Watcher{
		logger:    options.Logger,
		sink:      sink,
		errors:    NewErrorReporter(options.Logger, nil),
		tracker:   tracker,
		stateLock: state.NewTrackingLock(tracker),
		options:   options,
	}
}

// Errors returns the watcher's error reporter.
func (w *Watcher) Errors() *ErrorReporter {
	return w.errors
}

// SetIgnore replaces the ignore substrings. The change takes effect when the
// next session starts.
func (w *Watcher) SetIgnore(ignore []string) {
	w.lifecycleLock.Lock()
	defer w.lifecycleLock.Unlock()
	w.options.Ignore = append([]string(nil), ignore...)
}

// Ignore returns a copy of the ignore substrings.
func (w *Watcher) Ignore() []string {
	w.lifecycleLock.Lock()
	defer w.lifecycleLock.Unlock()
	return append([]string(nil), w.options.Ignore...)
}

// setState updates the lifecycle state. The caller must not hold stateLock.
func (w *Watcher) setState(state State) {
	w.stateLock.Lock()
	w.state = state
	w.stateLock.Unlock()
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.stateLock.Lock()
	defer w.stateLock.UnlockWithoutNotify()
	return w.state
}

// Status returns a snapshot of the watcher's status.
func (w *Watcher) Status() Status {
	w.stateLock.Lock()
	defer w.stateLock.UnlockWithoutNotify()
	status := Status{State: w.state}
	if w.current != nil {
		status.Root = w.current.root
		status.Backend = w.current.backend
		status.Watches = w.current.registry.Len()
	}
	return status
}

// Watched returns the sorted list of directories covered by the running
// session.
func (w *Watcher) Watched() []string {
	w.stateLock.Lock()
	current := w.current
	w.stateLock.UnlockWithoutNotify()
	if current == nil {
		return nil
	}
	return current.registry.Paths()
}

// WaitForStateChange blocks until the watcher's state index differs from the
// specified index and returns the new index along with the current state.
func (w *Watcher) WaitForStateChange(ctx context.Context, previousIndex uint64) (uint64, State, error) {
	index, err := w.tracker.WaitForChange(ctx, previousIndex)
	if err != nil {
		return index, StateIdle, err
	}
	return index, w.State(), nil
}

// Start stops any running session and starts a new one rooted at the specified
// directory. It returns once the initial watch tree is established. Failures
// are returned and also recorded with the error reporter.
func (w *Watcher) Start(path string) error {
	// Acquire the lifecycle lock.
	w.lifecycleLock.Lock()
	defer w.lifecycleLock.Unlock()

	// Don't allow sessions on a closed watcher.
	if w.disabled {
		return ErrWatcherClosed
	}

	// Stop any existing session.
	w.stop()

	// Compute the absolute root path.
	root, err := filepath.Abs(path)
	if err != nil {
		err = fmt.Errorf("unable to compute absolute path for %s: %w", path, err)
		w.errors.Report(err)
		return err
	}

	// Create the session.
	w.setState(StateStarting)
	s := newSession(w, root, w.options)

	// Start the worker and wait for setup to complete.
	setup := make(chan error, 1)
	go s.run(setup)
	if err := <-setup; err != nil {
		<-s.done
		w.setState(StateIdle)
		metricSessions.WithLabelValues(sessionResultFailed).Inc()
		err = fmt.Errorf("unable to start watching %s: %w", root, err)
		w.errors.Report(err)
		return err
	}
	w.session = s
	metricSessions.WithLabelValues(sessionResultStarted).Inc()

	// Success.
	w.logger.Infof("Watching %s", root)
	return nil
}

// stop stops the running session, if any. The caller must hold the lifecycle
// lock.
func (w *Watcher) stop() {
	// Check for a session.
	s := w.session
	if s == nil {
		return
	}

	// Mark the session as stopping if it's still running, so that no further
	// notifications are delivered.
	w.stateLock.Lock()
	if w.state.running() {
		w.state = StateStopping
	}
	w.stateLock.Unlock()

	// Signal the worker and wait for it to exit.
	s.source.Signal()
	<-s.done

	// Reset lifecycle state.
	w.session = nil
	w.setState(StateIdle)
	w.logger.Infof("Stopped watching %s", s.root)
}

// Stop stops the running session, waiting for its worker to exit and release
// all watches. It's a no-op if no session is running.
func (w *Watcher) Stop() error {
	w.lifecycleLock.Lock()
	defer w.lifecycleLock.Unlock()
	w.stop()
	return nil
}

// Pause suppresses notification delivery while keeping the session's watches
// up to date.
func (w *Watcher) Pause() error {
	return w.transition(StateActive, StatePaused)
}

// Resume re-enables notification delivery for a paused session.
func (w *Watcher) Resume() error {
	return w.transition(StatePaused, StateActive)
}

// transition moves a running session between the active and paused states.
// It's a no-op if the session is already in the target state.
func (w *Watcher) transition(from, to State) error {
	w.lifecycleLock.Lock()
	defer w.lifecycleLock.Unlock()

	// Update the state.
	w.stateLock.Lock()
	current := w.state
	if current == from {
		w.state = to
		w.stateLock.Unlock()
		w.logger.Debugf("%s -> %s", from, to)
		return nil
	}
	w.stateLock.UnlockWithoutNotify()

	// Handle idempotent and invalid transitions.
	if current == to {
		return nil
	}
	err := fmt.Errorf("unable to transition to %s: %w", to, ErrNotStarted)
	w.errors.Report(err)
	return err
}

// Close stops any running session and disables the watcher. It's idempotent.
func (w *Watcher) Close() error {
	w.lifecycleLock.Lock()
	defer w.lifecycleLock.Unlock()
	if w.disabled {
		return nil
	}
	w.stop()
	w.disabled = true
	w.tracker.Terminate()
	return nil
}

// delivering returns whether or not notifications should currently be
// delivered for the specified session, along with whether or not the session
// is paused.
func (w *Watcher) delivering(s *session) (deliver, paused bool) {
	w.stateLock.Lock()
	defer w.stateLock.UnlockWithoutNotify()
	if w.current != s {
		return false, false
	}
	return w.state == StateActive, w.state == StatePaused
}

// activate publishes a session whose setup completed successfully.
func (w *Watcher) activate(s *session) {
	w.stateLock.Lock()
	w.current = s
	w.state = StateActive
	w.stateLock.Unlock()
}

// deactivate withdraws an exiting session. If the session exited on its own
// while running, the watcher becomes idle.
func (w *Watcher) deactivate(s *session, err error) {
	w.stateLock.Lock()
	if w.current != s {
		w.stateLock.UnlockWithoutNotify()
		return
	}
	w.current = nil
	failed := w.state.running()
	if failed {
		w.state = StateIdle
	}
	w.stateLock.Unlock()

	// Report unexpected termination.
	if failed && err != nil && !errors.Is(err, ErrWatchTerminated) {
		w.errors.Report(fmt.Errorf("watching %s failed: %w", s.root, err))
	}
}
