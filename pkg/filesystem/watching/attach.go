package watching

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mutagen-io/treewatch/pkg/logging"
)

// AttachMode controls whether or not attachment emits synthetic notifications.
type AttachMode uint8

const (
	// AttachInitial is used when establishing a session. No notifications are
	// emitted and resource exhaustion anywhere in the tree is fatal.
	AttachInitial AttachMode = iota
	// AttachLive is used for directories created while a session is running.
	// Each discovered entry is reported as created, since its kernel creation
	// event may have been missed.
	AttachLive
	// AttachSilent is used for directories renamed into the tree or created
	// while paused. Watches are established without notifications.
	AttachSilent
)

// AttachResult records a per-entry failure encountered while attaching.
type AttachResult struct {
	// Path is the path of the entry that failed.
	Path string
	// Err is the failure.
	Err error
}

// Attacher recursively registers watches on directory trees. It's used only
// from a session's worker Goroutine.
type Attacher struct {
	// logger is the attacher logger.
	logger *logging.Logger
	// source is the event source.
	source Source
	// registry is the handle registry.
	registry *Registry
	// emit receives synthetic creation events.
	emit func(SystemEvent)
	// announced holds paths reported through synthetic creation events, so
	// that the corresponding kernel creation events can be suppressed.
	announced map[string]struct{}
}

// NewAttacher creates a new attacher. The emit callback receives creation
// events in AttachLive mode, starting with the attached directory itself.
func NewAttacher(source Source, registry *Registry, emit func(SystemEvent), logger *logging.Logger) *Attacher {
	return &Attacher{
		logger:    logger,
		source:    source,
		registry:  registry,
		emit:      emit,
		announced: make(map[string]struct{}),
	}
}

// Attach registers watches on the specified directory and, recursively, all of
// its non-ignored subdirectories. Symbolic links to directories are followed,
// except where they would form a cycle. A non-nil error indicates that the
// directory itself couldn't be watched (or, in AttachInitial mode, that watch
// resources were exhausted). Failures for individual descendants are returned
// as results.
func (a *Attacher) Attach(path string, mode AttachMode) ([]AttachResult, error) {
	// Verify that the path exists and is a directory.
	info, err := os.Stat(path)
	if err != nil {
		return nil, classify(err)
	} else if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	// Report the directory itself during live attachment. Its creation was
	// reported by the source, so it isn't announced.
	if mode == AttachLive && !a.registry.IsIgnored(path) {
		a.forward(SystemEvent{Kind: KindCreated, Path: path, IsDir: true})
	}

	// Perform attachment.
	var results []AttachResult
	if err := a.attach(path, info, mode, nil, true, &results); err != nil {
		return results, err
	}

	// Success.
	return results, nil
}

// attach is the recursive attachment implementation. The top flag indicates
// whether or not the directory is the one passed to Attach, whose creation (if
// any) was already reported by the source.
func (a *Attacher) attach(path string, info fs.FileInfo, mode AttachMode, ancestors []fs.FileInfo, top bool, results *[]AttachResult) error {
	// Skip excluded directories.
	if a.registry.IsIgnored(path) {
		return nil
	}

	// Skip directories that are already covered.
	if _, err := a.registry.HandleFor(path); err == nil {
		return nil
	}

	// Establish the watch.
	handle, err := a.source.AddWatch(path)
	if err != nil {
		return fmt.Errorf("unable to watch %s: %w", path, err)
	}

	// Sources return the existing handle for a directory that's reachable by
	// more than one path, in which case only the first path is watched.
	if existing, err := a.registry.PathFor(handle); err == nil && existing != path {
		a.logger.Debugf("Skipping %s, already watched as %s", path, existing)
		return nil
	}
	a.registry.Register(handle, path)

	// Report subdirectories discovered during live attachment.
	if mode == AttachLive && !top {
		a.announce(SystemEvent{Kind: KindCreated, Path: path, IsDir: true})
	}

	// Enumerate contents.
	entries, err := os.ReadDir(path)
	if err != nil {
		*results = append(*results, AttachResult{path, classify(err)})
		return nil
	}

	// Process files and collect subdirectories.
	type directory struct {
		path string
		info fs.FileInfo
	}
	var directories []directory
	for _, entry := range entries {
		child := filepath.Join(path, entry.Name())
		if a.registry.IsIgnored(child) {
			continue
		}

		// Resolve the entry, following symbolic links.
		childInfo, err := os.Stat(child)
		if err != nil {
			if entry.Type()&fs.ModeSymlink != 0 && errors.Is(err, fs.ErrNotExist) {
				// Dangling symbolic links are reported as files.
				childInfo = nil
			} else {
				*results = append(*results, AttachResult{child, classify(err)})
				continue
			}
		}

		// Record directories for later traversal and report files.
		if childInfo != nil && childInfo.IsDir() {
			directories = append(directories, directory{child, childInfo})
		} else if mode == AttachLive {
			a.announce(SystemEvent{Kind: KindCreated, Path: child})
		}
	}

	// Recurse into subdirectories, depth-first.
	ancestors = append(ancestors, info)
	for _, d := range directories {
		if cyclic(d.info, ancestors) {
			*results = append(*results, AttachResult{d.path, ErrSymbolicLinkCycle})
			continue
		}
		if err := a.attach(d.path, d.info, mode, ancestors, false, results); err != nil {
			if mode == AttachInitial && errors.Is(err, ErrResourceExhaustion) {
				return err
			}
			*results = append(*results, AttachResult{d.path, err})
		}
	}

	// Success.
	return nil
}

// cyclic determines whether or not a directory is one of the specified
// ancestors.
func cyclic(info fs.FileInfo, ancestors []fs.FileInfo) bool {
	for _, ancestor := range ancestors {
		if os.SameFile(info, ancestor) {
			return true
		}
	}
	return false
}

// forward emits an event without recording it.
func (a *Attacher) forward(event SystemEvent) {
	if a.emit != nil {
		a.emit(event)
	}
}

// announce records and emits a synthetic creation event.
func (a *Attacher) announce(event SystemEvent) {
	a.announced[event.Path] = struct{}{}
	a.forward(event)
}

// Consume reports whether or not a creation of the specified path was already
// announced. An announcement is consumed by the first check.
func (a *Attacher) Consume(path string) bool {
	if _, ok := a.announced[path]; ok {
		delete(a.announced, path)
		return true
	}
	return false
}

// Forget discards announcements for the specified path and everything beneath
// it.
func (a *Attacher) Forget(path string) {
	if len(a.announced) == 0 {
		return
	}
	prefix := path + string(filepath.Separator)
	for announced := range a.announced {
		if announced == path || strings.HasPrefix(announced, prefix) {
			delete(a.announced, announced)
		}
	}
}

// Pending returns the number of outstanding announcements.
func (a *Attacher) Pending() int {
	return len(a.announced)
}
