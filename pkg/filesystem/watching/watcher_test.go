package watching

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const (
	// maximumEventWaitTime is the maximum amount of time that tests will wait
	// for an expected notification.
	maximumEventWaitTime = 5 * time.Second
	// quietPeriod is the period without notifications after which a
	// collection is considered complete.
	quietPeriod = 500 * time.Millisecond
)

// collector is a Sink that buffers notifications for inspection.
type collector struct {
	notifications chan Notification
}

func newCollector() *collector {
	return &collector{notifications: make(chan Notification, 4096)}
}

// Deliver implements Sink.Deliver.
func (c *collector) Deliver(notification Notification) {
	select {
	case c.notifications <- notification:
	default:
		panic("collector buffer exhausted")
	}
}

// waitFor waits for a notification with the specified code and path, returning
// the notifications that were skipped while waiting.
func (c *collector) waitFor(t *testing.T, code Code, path string) []Notification {
	t.Helper()
	deadline := time.NewTimer(maximumEventWaitTime)
	defer deadline.Stop()
	var skipped []Notification
	for {
		select {
		case <-deadline.C:
			t.Fatalf("notification (%s, %s) not received in time, saw: %v", code, path, skipped)
		case notification := <-c.notifications:
			if notification.Code == code && notification.Path == path {
				return skipped
			}
			skipped = append(skipped, notification)
		}
	}
}

// collect gathers notifications until none arrive for a quiet period.
func (c *collector) collect() []Notification {
	var result []Notification
	for {
		select {
		case notification := <-c.notifications:
			result = append(result, notification)
		case <-time.After(quietPeriod):
			return result
		}
	}
}

// count returns the number of notifications matching a code and path.
func count(notifications []Notification, code Code, path string) int {
	var result int
	for _, notification := range notifications {
		if notification.Code == code && notification.Path == path {
			result++
		}
	}
	return result
}

// integrationBackends returns the backends for which integration tests are
// run on the current platform.
func integrationBackends(t *testing.T) []Backend {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("integration tests require linux")
	}
	return []Backend{BackendInotify, BackendPortable}
}

// startWatcher creates a watch root directory and starts a watcher on it with
// the specified backend, stopping it when the test completes.
func startWatcher(t *testing.T, backend Backend, ignore ...string) (*Watcher, *collector, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "root")
	if err := os.Mkdir(root, 0700); err != nil {
		t.Fatal("unable to create watch root:", err)
	}
	sink := newCollector()
	watcher := NewWatcher(sink, Options{Backend: backend, Ignore: ignore})
	if err := watcher.Start(root); err != nil {
		t.Fatal("unable to start watcher:", err)
	}
	t.Cleanup(func() {
		watcher.Close()
	})
	if state := watcher.State(); state != StateActive {
		t.Fatal("unexpected state after start:", state)
	}
	return watcher, sink, root
}

// writeFile writes a file, failing the test on error.
func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0600); err != nil {
		t.Fatal("unable to write file:", err)
	}
}

// mkdir creates a directory hierarchy, failing the test on error.
func mkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0700); err != nil {
		t.Fatal("unable to create directory:", err)
	}
}

// TestWatchFileLifecycle tests file creation, modification, and removal.
func TestWatchFileLifecycle(t *testing.T) {
	for _, backend := range integrationBackends(t) {
		t.Run(backend.Description(), func(t *testing.T) {
			_, sink, root := startWatcher(t, backend)
			path := filepath.Join(root, "x.txt")

			writeFile(t, path)
			sink.waitFor(t, CodeFileAdded, path)

			file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
			if err != nil {
				t.Fatal("unable to open file:", err)
			} else if _, err := file.Write([]byte("more")); err != nil {
				t.Error("unable to write to file:", err)
			}
			file.Close()
			sink.waitFor(t, CodeFileChanged, path)

			if err := os.Remove(path); err != nil {
				t.Fatal("unable to remove file:", err)
			}
			sink.waitFor(t, CodeFileRemoved, path)
		})
	}
}

// TestWatchNestedCreation tests that a rapidly created hierarchy is reported
// exactly once per entry and fully covered afterward.
func TestWatchNestedCreation(t *testing.T) {
	for _, backend := range integrationBackends(t) {
		t.Run(backend.Description(), func(t *testing.T) {
			watcher, sink, root := startWatcher(t, backend)
			a := filepath.Join(root, "a")
			b := filepath.Join(a, "b")
			c := filepath.Join(b, "c.txt")

			mkdir(t, b)
			writeFile(t, c)

			notifications := sink.collect()
			for _, expected := range []struct {
				code Code
				path string
			}{
				{CodeDirectoryAdded, a},
				{CodeDirectoryAdded, b},
				{CodeFileAdded, c},
			} {
				if n := count(notifications, expected.code, expected.path); n != 1 {
					t.Errorf("saw (%s, %s) %d times: %v", expected.code, expected.path, n, notifications)
				}
			}

			watched := watcher.Watched()
			if len(watched) != 3 || watched[2] != b {
				t.Error("unexpected watched directories:", watched)
			}

			d := filepath.Join(b, "d.txt")
			writeFile(t, d)
			sink.waitFor(t, CodeFileAdded, d)
		})
	}
}

// TestWatchStop tests that no notifications are delivered after Stop.
func TestWatchStop(t *testing.T) {
	for _, backend := range integrationBackends(t) {
		t.Run(backend.Description(), func(t *testing.T) {
			watcher, sink, root := startWatcher(t, backend)
			if err := watcher.Stop(); err != nil {
				t.Fatal("unable to stop watcher:", err)
			}
			if state := watcher.State(); state != StateIdle {
				t.Error("unexpected state after stop:", state)
			}
			if watched := watcher.Watched(); len(watched) != 0 {
				t.Error("watches remain after stop:", watched)
			}

			writeFile(t, filepath.Join(root, "late.txt"))
			if notifications := sink.collect(); len(notifications) != 0 {
				t.Error("notifications delivered after stop:", notifications)
			}

			if err := watcher.Stop(); err != nil {
				t.Error("repeated stop failed:", err)
			}
		})
	}
}

// TestWatchPause tests that notifications are suppressed while paused and that
// directories created while paused are covered after resumption.
func TestWatchPause(t *testing.T) {
	for _, backend := range integrationBackends(t) {
		t.Run(backend.Description(), func(t *testing.T) {
			watcher, sink, root := startWatcher(t, backend)
			if err := watcher.Pause(); err != nil {
				t.Fatal("unable to pause:", err)
			}
			if err := watcher.Pause(); err != nil {
				t.Error("repeated pause failed:", err)
			}
			if state := watcher.State(); state != StatePaused {
				t.Error("unexpected state after pause:", state)
			}

			hidden := filepath.Join(root, "hidden")
			mkdir(t, hidden)
			writeFile(t, filepath.Join(root, "p.txt"))
			if notifications := sink.collect(); len(notifications) != 0 {
				t.Error("notifications delivered while paused:", notifications)
			}

			if err := watcher.Resume(); err != nil {
				t.Fatal("unable to resume:", err)
			}
			q := filepath.Join(hidden, "q.txt")
			writeFile(t, q)
			if skipped := sink.waitFor(t, CodeFileAdded, q); len(skipped) != 0 {
				t.Error("unexpected notifications after resume:", skipped)
			}
		})
	}
}

// TestWatchRootRemoval tests that removal of the watch root is reported and
// that the session remains running until stopped.
func TestWatchRootRemoval(t *testing.T) {
	for _, backend := range integrationBackends(t) {
		t.Run(backend.Description(), func(t *testing.T) {
			watcher, sink, root := startWatcher(t, backend)
			mkdir(t, filepath.Join(root, "sub"))
			sink.waitFor(t, CodeDirectoryAdded, filepath.Join(root, "sub"))

			if err := os.RemoveAll(root); err != nil {
				t.Fatal("unable to remove watch root:", err)
			}
			sink.waitFor(t, CodeRootRemoved, root)
			sink.waitFor(t, CodeDisconnected, root)

			if state := watcher.State(); state != StateActive {
				t.Error("unexpected state after root removal:", state)
			}
			if err := watcher.Stop(); err != nil {
				t.Error("unable to stop watcher:", err)
			}
		})
	}
}

// TestWatchIgnore tests that ignored paths are neither watched nor reported.
func TestWatchIgnore(t *testing.T) {
	for _, backend := range integrationBackends(t) {
		t.Run(backend.Description(), func(t *testing.T) {
			watcher, sink, root := startWatcher(t, backend, ".git")
			mkdir(t, filepath.Join(root, ".git", "objects"))
			writeFile(t, filepath.Join(root, ".git", "HEAD"))
			visible := filepath.Join(root, "visible")
			writeFile(t, visible)

			skipped := sink.waitFor(t, CodeFileAdded, visible)
			for _, notification := range append(skipped, sink.collect()...) {
				if strings.Contains(notification.Path, ".git") {
					t.Error("ignored path reported:", notification)
				}
			}
			for _, path := range watcher.Watched() {
				if strings.Contains(path, ".git") {
					t.Error("ignored path watched:", path)
				}
			}
		})
	}
}

// TestStartFailures tests that invalid roots abort Start and leave the watcher
// idle with the failure recorded.
func TestStartFailures(t *testing.T) {
	directory := t.TempDir()
	file := filepath.Join(directory, "file")
	writeFile(t, file)

	testCases := []struct {
		name     string
		path     string
		ignore   []string
		expected error
	}{
		{"missing", filepath.Join(directory, "missing"), nil, ErrPathNotFound},
		{"file", file, nil, ErrNotDirectory},
		{"ignored", directory, []string{filepath.Base(directory)}, ErrRootIgnored},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			watcher := NewWatcher(nil, Options{Backend: BackendPortable, Ignore: testCase.ignore})
			defer watcher.Close()
			if err := watcher.Start(testCase.path); !errors.Is(err, testCase.expected) {
				t.Fatal("unexpected start error:", err)
			}
			if state := watcher.State(); state != StateIdle {
				t.Error("unexpected state after failed start:", state)
			}
			if !watcher.Errors().HasError() {
				t.Error("start failure not recorded")
			}
			if message := watcher.Errors().LastError(); message == "" {
				t.Error("empty error message")
			}
		})
	}
}

// TestLifecycleErrors tests invalid lifecycle transitions.
func TestLifecycleErrors(t *testing.T) {
	watcher := NewWatcher(nil, Options{Backend: BackendPortable})
	if err := watcher.Pause(); !errors.Is(err, ErrNotStarted) {
		t.Error("pause succeeded on idle watcher:", err)
	}
	if err := watcher.Resume(); !errors.Is(err, ErrNotStarted) {
		t.Error("resume succeeded on idle watcher:", err)
	}
	if err := watcher.Stop(); err != nil {
		t.Error("stop failed on idle watcher:", err)
	}
	if err := watcher.Close(); err != nil {
		t.Error("unable to close watcher:", err)
	}
	if err := watcher.Start(t.TempDir()); !errors.Is(err, ErrWatcherClosed) {
		t.Error("start succeeded on closed watcher:", err)
	}
	if err := watcher.Close(); err != nil {
		t.Error("repeated close failed:", err)
	}
}

// TestWatchRestart tests that starting a new session replaces the old one.
func TestWatchRestart(t *testing.T) {
	for _, backend := range integrationBackends(t) {
		t.Run(backend.Description(), func(t *testing.T) {
			watcher, sink, first := startWatcher(t, backend)
			second := t.TempDir()
			if err := watcher.Start(second); err != nil {
				t.Fatal("unable to restart watcher:", err)
			}
			if status := watcher.Status(); status.Root != second || status.State != StateActive || status.Watches != 1 {
				t.Error("unexpected status after restart:", status)
			}

			writeFile(t, filepath.Join(first, "old.txt"))
			path := filepath.Join(second, "new.txt")
			writeFile(t, path)
			if skipped := sink.waitFor(t, CodeFileAdded, path); count(skipped, CodeFileAdded, filepath.Join(first, "old.txt")) != 0 {
				t.Error("notification delivered for previous root")
			}
		})
	}
}

// TestWaitForStateChange tests state change tracking.
func TestWaitForStateChange(t *testing.T) {
	watcher := NewWatcher(nil, Options{Backend: BackendPortable})
	defer watcher.Close()
	ctx, cancel := context.WithTimeout(context.Background(), maximumEventWaitTime)
	defer cancel()

	index, state, err := watcher.WaitForStateChange(ctx, 0)
	if err != nil {
		t.Fatal("unable to read initial state:", err)
	} else if state != StateIdle {
		t.Error("unexpected initial state:", state)
	}

	if err := watcher.Start(t.TempDir()); err != nil {
		t.Fatal("unable to start watcher:", err)
	}
	if _, state, err = watcher.WaitForStateChange(ctx, index); err != nil {
		t.Fatal("unable to wait for state change:", err)
	} else if state != StateActive {
		t.Error("unexpected state after start:", state)
	}
}

// failingSource is a Source whose waits or reads fail.
type failingSource struct {
	*fakeSource
	// waitErr is returned by Wait, if non-nil.
	waitErr error
	// readErr is returned by Read.
	readErr error
}

func (s *failingSource) Wait() (Readiness, error) {
	if s.waitErr != nil {
		return ReadinessData, s.waitErr
	}
	return ReadinessData, nil
}

func (s *failingSource) Read() ([]Record, error) {
	return nil, s.readErr
}

// TestWatchSourceFailure tests that a failing event source ends the session,
// returns the watcher to idle, and reports the failure.
func TestWatchSourceFailure(t *testing.T) {
	cause := errors.New("source failure")
	testCases := []struct {
		description string
		source      *failingSource
		context     string
	}{
		{"wait", &failingSource{fakeSource: newFakeSource(), waitErr: cause}, "unable to wait for events"},
		{"read", &failingSource{fakeSource: newFakeSource(), readErr: cause}, "unable to read events"},
	}
	defer func(original func(Backend, SourceOptions) (Source, error)) {
		openSource = original
	}(openSource)

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			openSource = func(Backend, SourceOptions) (Source, error) {
				return testCase.source, nil
			}
			watcher := NewWatcher(nil, Options{})
			defer watcher.Close()
			if err := watcher.Start(t.TempDir()); err != nil {
				t.Fatal("unable to start watcher:", err)
			}

			// Wait for the worker to exit.
			ctx, cancel := context.WithTimeout(context.Background(), maximumEventWaitTime)
			defer cancel()
			var index uint64
			for state := watcher.State(); state != StateIdle; {
				var err error
				if index, state, err = watcher.WaitForStateChange(ctx, index); err != nil {
					t.Fatal("watcher did not return to idle:", err)
				}
			}

			// Verify that the failure was reported with its cause.
			if !watcher.Errors().HasError() {
				t.Fatal("source failure not reported")
			}
			message := watcher.Errors().LastError()
			if !strings.Contains(message, testCase.context) || !strings.Contains(message, cause.Error()) {
				t.Error("unexpected error message:", message)
			}

			// Stopping after the worker has exited must not block.
			stopped := make(chan error, 1)
			go func() {
				stopped <- watcher.Stop()
			}()
			select {
			case err := <-stopped:
				if err != nil {
					t.Error("unable to stop watcher:", err)
				}
			case <-time.After(maximumEventWaitTime):
				t.Fatal("stop blocked after source failure")
			}
			if state := watcher.State(); state != StateIdle {
				t.Error("unexpected state after stop:", state)
			}
		})
	}
}
