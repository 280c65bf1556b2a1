package watching

import (
	"path/filepath"
	"sync"
)

// fakeSource is an in-memory Source used to test attachment and dispatch
// without a platform backend. Handles are assigned sequentially and directory
// identity is tracked by path.
type fakeSource struct {
	lock     sync.Mutex
	next     Handle
	handles  map[string]Handle
	removed  []Handle
	failures map[string]error
	records  chan []Record
	cancel   chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		next:     1,
		handles:  make(map[string]Handle),
		failures: make(map[string]error),
		records:  make(chan []Record, 16),
		cancel:   make(chan struct{}, 1),
	}
}

func (s *fakeSource) AddWatch(path string) (Handle, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.failures[filepath.Clean(path)]; err != nil {
		return 0, err
	}
	if handle, ok := s.handles[path]; ok {
		return handle, nil
	}
	handle := s.next
	s.next++
	s.handles[path] = handle
	return handle, nil
}

func (s *fakeSource) RemoveWatch(handle Handle) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for path, h := range s.handles {
		if h == handle {
			delete(s.handles, path)
		}
	}
	s.removed = append(s.removed, handle)
	return nil
}

func (s *fakeSource) Wait() (Readiness, error) {
	select {
	case <-s.cancel:
		return ReadinessCancelled, nil
	default:
	}
	select {
	case <-s.cancel:
		return ReadinessCancelled, nil
	case records := <-s.records:
		s.records <- records
		return ReadinessData, nil
	}
}

func (s *fakeSource) Read() ([]Record, error) {
	select {
	case records := <-s.records:
		return records, nil
	default:
		return nil, nil
	}
}

func (s *fakeSource) Signal() {
	select {
	case s.cancel <- struct{}{}:
	default:
	}
}

func (s *fakeSource) Close() error {
	return nil
}

// watched returns the number of active watches.
func (s *fakeSource) watched() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.handles)
}
