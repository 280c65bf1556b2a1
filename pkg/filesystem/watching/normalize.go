package watching

import (
	"path/filepath"

	"github.com/mutagen-io/treewatch/pkg/logging"
)

// Normalizer converts raw records into normalized events. It's used only from a
// session's worker Goroutine.
type Normalizer struct {
	// logger is the normalizer logger.
	logger *logging.Logger
	// registry is the handle registry.
	registry *Registry
	// root is the watch root path.
	root string
	// rootHandle is the handle of the watch root.
	rootHandle Handle
	// rootDisconnected indicates whether or not retirement of the root watch
	// has already been reported.
	rootDisconnected bool
}

// NewNormalizer creates a new normalizer for a watch rooted at the specified
// path and handle.
func NewNormalizer(registry *Registry, root string, rootHandle Handle, logger *logging.Logger) *Normalizer {
	return &Normalizer{
		logger:     logger,
		registry:   registry,
		root:       root,
		rootHandle: rootHandle,
	}
}

// Drain normalizes a batch of records, in order, into the specified queue.
func (n *Normalizer) Drain(records []Record, queue *EventQueue) {
	for _, record := range records {
		if event, ok := n.normalize(record); ok {
			queue.Push(event)
		}
	}
}

// normalize converts a single record. It returns false if the record should be
// dropped. Registry retirement for invalidated watches happens here, so that
// later records in the same batch never resolve a stale handle.
func (n *Normalizer) normalize(record Record) (SystemEvent, bool) {
	n.logger.Tracef("Record: handle=%d mask=%s name=%q", record.Handle, record.Mask, record.Name)

	// Overflow records aren't associated with any watch.
	if record.Mask&MaskOverflow != 0 {
		return SystemEvent{Kind: KindOverflow, Path: n.root, IsDir: true, Root: true}, true
	}

	// Handle watch invalidation. Retirement is idempotent, since the kernel
	// follows a self-deletion with an ignored record.
	invalidated := record.Mask&(MaskDeleteSelf|MaskIgnored) != 0
	if invalidated && record.Name == "" {
		defer n.registry.Unregister(record.Handle)
	}

	// Resolve the handle.
	directory, err := n.registry.PathFor(record.Handle)
	if err != nil {
		// A retired root watch is still reported once as disconnected.
		if record.Mask&MaskIgnored != 0 && record.Handle == n.rootHandle && !n.rootDisconnected {
			n.rootDisconnected = true
			return SystemEvent{Kind: KindIgnored, Path: n.root, IsDir: true, Root: true}, true
		}
		metricEventsDiscarded.WithLabelValues(discardReasonStale).Inc()
		return SystemEvent{}, false
	}

	// Classify the record.
	kind := kindForMask(record.Mask)
	if kind == KindAny {
		metricEventsDiscarded.WithLabelValues(discardReasonUnclassified).Inc()
		return SystemEvent{}, false
	}

	// Compute the path and determine whether or not the event concerns a
	// watched directory itself.
	path := directory
	self := record.Name == ""
	if !self {
		path = filepath.Join(directory, record.Name)
	}
	root := self && record.Handle == n.rootHandle

	// Only report root disconnection once.
	if kind == KindIgnored && root {
		if n.rootDisconnected {
			return SystemEvent{}, false
		}
		n.rootDisconnected = true
	}

	// Apply exclusions. The root itself is never excluded.
	if !root && n.registry.IsIgnored(path) {
		metricEventsDiscarded.WithLabelValues(discardReasonIgnored).Inc()
		return SystemEvent{}, false
	}

	// Success.
	return SystemEvent{
		Kind:  kind,
		Path:  path,
		IsDir: self || record.Mask&MaskIsDirectory != 0,
		Root:  root,
	}, true
}
