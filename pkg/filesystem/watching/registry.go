package watching

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownHandle indicates that a handle isn't registered.
	ErrUnknownHandle = errors.New("unknown watch handle")
	// ErrUnknownPath indicates that a path isn't registered.
	ErrUnknownPath = errors.New("unknown watch path")
)

// Registry maintains the bidirectional mapping between watch handles and
// watched directory paths, along with the ignore list consulted before any
// registration. It's mutated only by a session's worker Goroutine, but its
// methods are safe for concurrent usage so that coverage can be inspected.
type Registry struct {
	// ignore is the ignore list.
	ignore *IgnoreList
	// lock serializes access to the maps below.
	lock sync.RWMutex
	// paths maps handles to paths.
	paths map[Handle]string
	// handles maps paths to handles.
	handles map[string]Handle
}

// NewRegistry creates a new registry using the specified ignore list, which
// may be nil.
func NewRegistry(ignore *IgnoreList) *Registry {
	return &Registry{
		ignore:  ignore,
		paths:   make(map[Handle]string),
		handles: make(map[string]Handle),
	}
}

// IsIgnored indicates whether or not a path is excluded from watching.
func (r *Registry) IsIgnored(path string) bool {
	return r.ignore.Matches(path)
}

// Register records a handle and path pair, replacing any existing mapping for
// either of them.
func (r *Registry) Register(handle Handle, path string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	// Remove stale pairings for the handle and path.
	if previous, ok := r.paths[handle]; ok {
		delete(r.handles, previous)
		metricWatchesActive.Dec()
	}
	if previous, ok := r.handles[path]; ok {
		delete(r.paths, previous)
		metricWatchesActive.Dec()
	}

	// Record the pairing.
	r.paths[handle] = path
	r.handles[path] = handle
	metricWatchesActive.Inc()
}

// Unregister removes a handle and its path. It returns the removed path and
// whether or not the handle was registered. It's idempotent.
func (r *Registry) Unregister(handle Handle) (string, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	path, ok := r.paths[handle]
	if !ok {
		return "", false
	}
	delete(r.paths, handle)
	delete(r.handles, path)
	metricWatchesActive.Dec()
	return path, true
}

// PathFor returns the path associated with a handle.
func (r *Registry) PathFor(handle Handle) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if path, ok := r.paths[handle]; ok {
		return path, nil
	}
	return "", ErrUnknownHandle
}

// HandleFor returns the handle associated with a path.
func (r *Registry) HandleFor(path string) (Handle, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if handle, ok := r.handles[path]; ok {
		return handle, nil
	}
	return 0, ErrUnknownPath
}

// Subtree returns the handles of the specified path and all registered paths
// beneath it.
func (r *Registry) Subtree(path string) []Handle {
	r.lock.RLock()
	defer r.lock.RUnlock()
	prefix := path + string(filepath.Separator)
	var result []Handle
	for candidate, handle := range r.handles {
		if candidate == path || strings.HasPrefix(candidate, prefix) {
			result = append(result, handle)
		}
	}
	return result
}

// Handles returns all registered handles.
func (r *Registry) Handles() []Handle {
	r.lock.RLock()
	defer r.lock.RUnlock()
	result := make([]Handle, 0, len(r.paths))
	for handle := range r.paths {
		result = append(result, handle)
	}
	return result
}

// Paths returns all registered paths in sorted order.
func (r *Registry) Paths() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	result := make([]string, 0, len(r.handles))
	for path := range r.handles {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of registered watches.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.paths)
}

// Clear removes all registrations.
func (r *Registry) Clear() {
	r.lock.Lock()
	defer r.lock.Unlock()
	metricWatchesActive.Sub(float64(len(r.paths)))
	r.paths = make(map[Handle]string)
	r.handles = make(map[string]Handle)
}
