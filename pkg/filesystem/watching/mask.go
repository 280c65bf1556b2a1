package watching

import (
	"strings"
)

// Mask is a raw event mask as reported by an event source. Its bit values are
// identical to those used by the Linux inotify API, which allows the inotify
// backend to pass kernel masks through unmodified. Other backends synthesize
// records using the same values.
type Mask uint32

const (
	// MaskModify indicates that a file was modified.
	MaskModify Mask = 0x2
	// MaskMovedFrom indicates that an entry was renamed away from a watched
	// directory.
	MaskMovedFrom Mask = 0x40
	// MaskMovedTo indicates that an entry was renamed into a watched
	// directory.
	MaskMovedTo Mask = 0x80
	// MaskCreate indicates that an entry was created in a watched directory.
	MaskCreate Mask = 0x100
	// MaskDelete indicates that an entry was deleted from a watched directory.
	MaskDelete Mask = 0x200
	// MaskDeleteSelf indicates that a watched directory itself was deleted.
	MaskDeleteSelf Mask = 0x400
	// MaskMoveSelf indicates that a watched directory itself was moved.
	MaskMoveSelf Mask = 0x800
	// MaskUnmount indicates that the filesystem backing a watch was unmounted.
	MaskUnmount Mask = 0x2000
	// MaskOverflow indicates that the event queue overflowed and events were
	// lost.
	MaskOverflow Mask = 0x4000
	// MaskIgnored indicates that a watch was removed, either explicitly or
	// because its target became invalid.
	MaskIgnored Mask = 0x8000
	// MaskOnlyDirectory restricts watch registration to directories.
	MaskOnlyDirectory Mask = 0x1000000
	// MaskIsDirectory indicates that the subject of an event is a directory.
	MaskIsDirectory Mask = 0x40000000

	// subscriptionMask is the set of events requested for every watch.
	subscriptionMask = MaskCreate | MaskDelete | MaskDeleteSelf | MaskModify |
		MaskMoveSelf | MaskMovedFrom | MaskMovedTo
)

// maskNames are the textual names of mask bits, in classification order.
var maskNames = []struct {
	bit  Mask
	name string
}{
	{MaskMovedFrom, "MOVED_FROM"},
	{MaskMovedTo, "MOVED_TO"},
	{MaskCreate, "CREATE"},
	{MaskDelete, "DELETE"},
	{MaskDeleteSelf, "DELETE_SELF"},
	{MaskModify, "MODIFY"},
	{MaskMoveSelf, "MOVE_SELF"},
	{MaskUnmount, "UNMOUNT"},
	{MaskOverflow, "Q_OVERFLOW"},
	{MaskIgnored, "IGNORED"},
	{MaskOnlyDirectory, "ONLYDIR"},
	{MaskIsDirectory, "ISDIR"},
}

// String provides a human-readable representation of the mask.
func (m Mask) String() string {
	var names []string
	for _, n := range maskNames {
		if m&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "0"
	}
	return strings.Join(names, "|")
}
