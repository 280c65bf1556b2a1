package watching

// Kind identifies the category of a normalized filesystem event.
type Kind uint8

const (
	// KindAny is the catch-all kind used for handler lookup fallback. It is
	// never assigned to a normalized event.
	KindAny Kind = iota
	// KindCreated indicates that an entry was created.
	KindCreated
	// KindRemoved indicates that an entry was removed.
	KindRemoved
	// KindModified indicates that a file's contents changed.
	KindModified
	// KindRenamedFrom indicates the old name of a renamed entry.
	KindRenamedFrom
	// KindRenamedTo indicates the new name of a renamed entry.
	KindRenamedTo
	// KindSelfRemoved indicates that a watched directory itself was removed.
	KindSelfRemoved
	// KindSelfMoved indicates that a watched directory itself was moved.
	KindSelfMoved
	// KindUnmounted indicates that the filesystem backing a watch was
	// unmounted.
	KindUnmounted
	// KindOverflow indicates that events were lost.
	KindOverflow
	// KindIgnored indicates that a watch was retired.
	KindIgnored
)

// String provides a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindCreated:
		return "created"
	case KindRemoved:
		return "removed"
	case KindModified:
		return "modified"
	case KindRenamedFrom:
		return "renamed-from"
	case KindRenamedTo:
		return "renamed-to"
	case KindSelfRemoved:
		return "self-removed"
	case KindSelfMoved:
		return "self-moved"
	case KindUnmounted:
		return "unmounted"
	case KindOverflow:
		return "overflow"
	case KindIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// kindForMask classifies a raw mask. When multiple bits are set, the first
// match in a fixed priority order wins. KindAny is returned if the mask
// carries no classifiable bit.
func kindForMask(mask Mask) Kind {
	switch {
	case mask&MaskMovedFrom != 0:
		return KindRenamedFrom
	case mask&MaskMovedTo != 0:
		return KindRenamedTo
	case mask&MaskCreate != 0:
		return KindCreated
	case mask&MaskDelete != 0:
		return KindRemoved
	case mask&MaskDeleteSelf != 0:
		return KindSelfRemoved
	case mask&MaskModify != 0:
		return KindModified
	case mask&MaskMoveSelf != 0:
		return KindSelfMoved
	case mask&MaskUnmount != 0:
		return KindUnmounted
	case mask&MaskOverflow != 0:
		return KindOverflow
	case mask&MaskIgnored != 0:
		return KindIgnored
	default:
		return KindAny
	}
}

// SystemEvent is a normalized filesystem event. Its path is always absolute.
type SystemEvent struct {
	// Kind is the event kind.
	Kind Kind
	// Path is the absolute path of the entry that the event concerns.
	Path string
	// IsDir indicates whether or not the entry is a directory.
	IsDir bool
	// Root indicates whether or not the event concerns the watch root itself.
	Root bool
}
