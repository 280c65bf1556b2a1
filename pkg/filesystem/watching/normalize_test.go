package watching

import (
	"path/filepath"
	"testing"
)

// newTestNormalizer creates a normalizer for a root at /r (handle 1) with a
// subdirectory /r/a (handle 2), ignoring paths that contain ".git".
func newTestNormalizer(t *testing.T) (*Normalizer, *Registry) {
	t.Helper()
	root := filepath.FromSlash("/r")
	ignore, err := NewIgnoreList(root, []string{".git"}, nil)
	if err != nil {
		t.Fatal("unable to create ignore list:", err)
	}
	registry := NewRegistry(ignore)
	registry.Register(1, root)
	registry.Register(2, filepath.Join(root, "a"))
	return NewNormalizer(registry, root, 1, nil), registry
}

// normalizeAll drains records through a normalizer into a slice.
func normalizeAll(normalizer *Normalizer, records ...Record) []SystemEvent {
	var queue EventQueue
	normalizer.Drain(records, &queue)
	var events []SystemEvent
	for {
		event, ok := queue.Pop()
		if !ok {
			return events
		}
		events = append(events, event)
	}
}

// TestNormalizePaths tests path resolution and directory flagging.
func TestNormalizePaths(t *testing.T) {
	normalizer, _ := newTestNormalizer(t)
	events := normalizeAll(normalizer,
		Record{Handle: 1, Mask: MaskCreate, Name: "x.txt"},
		Record{Handle: 2, Mask: MaskCreate | MaskIsDirectory, Name: "b"},
		Record{Handle: 2, Mask: MaskModify, Name: "y.txt"},
	)
	expected := []SystemEvent{
		{Kind: KindCreated, Path: filepath.FromSlash("/r/x.txt")},
		{Kind: KindCreated, Path: filepath.FromSlash("/r/a/b"), IsDir: true},
		{Kind: KindModified, Path: filepath.FromSlash("/r/a/y.txt")},
	}
	if len(events) != len(expected) {
		t.Fatalf("unexpected event count: %d", len(events))
	}
	for i, event := range events {
		if event != expected[i] {
			t.Errorf("event %d: %+v, expected %+v", i, event, expected[i])
		}
	}
}

// TestNormalizeIgnored tests that excluded and unknown paths are dropped.
func TestNormalizeIgnored(t *testing.T) {
	normalizer, _ := newTestNormalizer(t)
	events := normalizeAll(normalizer,
		Record{Handle: 1, Mask: MaskCreate | MaskIsDirectory, Name: ".git"},
		Record{Handle: 99, Mask: MaskCreate, Name: "orphan"},
		Record{Handle: 1, Mask: MaskIsDirectory, Name: "nothing"},
	)
	if len(events) != 0 {
		t.Error("unexpected events:", events)
	}
}

// TestNormalizeRetirement tests that invalidated handles are retired during
// normalization, so later records in the same batch don't resolve.
func TestNormalizeRetirement(t *testing.T) {
	normalizer, registry := newTestNormalizer(t)
	events := normalizeAll(normalizer,
		Record{Handle: 2, Mask: MaskDeleteSelf},
		Record{Handle: 2, Mask: MaskIgnored},
		Record{Handle: 2, Mask: MaskCreate, Name: "late"},
		Record{Handle: 1, Mask: MaskDelete | MaskIsDirectory, Name: "a"},
	)
	if _, err := registry.PathFor(2); err == nil {
		t.Error("invalidated handle still registered")
	}
	if len(events) != 2 {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[0].Kind != KindSelfRemoved || events[0].Root || events[0].Path != filepath.FromSlash("/r/a") {
		t.Errorf("unexpected self-removal event: %+v", events[0])
	}
	if events[1].Kind != KindRemoved || !events[1].IsDir {
		t.Errorf("unexpected removal event: %+v", events[1])
	}
}

// TestNormalizeRoot tests root-specific events.
func TestNormalizeRoot(t *testing.T) {
	normalizer, registry := newTestNormalizer(t)
	root := filepath.FromSlash("/r")
	events := normalizeAll(normalizer,
		Record{Handle: overflowHandle, Mask: MaskOverflow},
		Record{Handle: 1, Mask: MaskMoveSelf},
		Record{Handle: 1, Mask: MaskDeleteSelf},
		Record{Handle: 1, Mask: MaskIgnored},
		Record{Handle: 1, Mask: MaskIgnored},
	)
	expected := []SystemEvent{
		{Kind: KindOverflow, Path: root, IsDir: true, Root: true},
		{Kind: KindSelfMoved, Path: root, IsDir: true, Root: true},
		{Kind: KindSelfRemoved, Path: root, IsDir: true, Root: true},
		{Kind: KindIgnored, Path: root, IsDir: true, Root: true},
	}
	if len(events) != len(expected) {
		t.Fatalf("unexpected events: %+v", events)
	}
	for i, event := range events {
		if event != expected[i] {
			t.Errorf("event %d: %+v, expected %+v", i, event, expected[i])
		}
	}
	if registry.Len() != 1 {
		t.Error("unexpected registry size:", registry.Len())
	}
}

// TestNormalizeRootIgnoredOnly tests that an ignored record for the root is
// reported even without a preceding self-removal.
func TestNormalizeRootIgnoredOnly(t *testing.T) {
	normalizer, _ := newTestNormalizer(t)
	events := normalizeAll(normalizer, Record{Handle: 1, Mask: MaskIgnored})
	if len(events) != 1 || events[0].Kind != KindIgnored || !events[0].Root {
		t.Errorf("unexpected events: %+v", events)
	}
}
