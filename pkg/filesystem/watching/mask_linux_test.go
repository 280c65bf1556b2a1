package watching

import (
	"testing"

	"golang.org/x/sys/unix"
)

// TestMaskValuesMatchInotify verifies that the platform-neutral mask bits are
// identical to the kernel's values, since inotify masks are passed through
// without conversion.
func TestMaskValuesMatchInotify(t *testing.T) {
	testCases := []struct {
		mask     Mask
		expected uint32
	}{
		{MaskModify, unix.IN_MODIFY},
		{MaskMovedFrom, unix.IN_MOVED_FROM},
		{MaskMovedTo, unix.IN_MOVED_TO},
		{MaskCreate, unix.IN_CREATE},
		{MaskDelete, unix.IN_DELETE},
		{MaskDeleteSelf, unix.IN_DELETE_SELF},
		{MaskMoveSelf, unix.IN_MOVE_SELF},
		{MaskUnmount, unix.IN_UNMOUNT},
		{MaskOverflow, unix.IN_Q_OVERFLOW},
		{MaskIgnored, unix.IN_IGNORED},
		{MaskOnlyDirectory, unix.IN_ONLYDIR},
		{MaskIsDirectory, unix.IN_ISDIR},
	}
	for _, testCase := range testCases {
		if uint32(testCase.mask) != testCase.expected {
			t.Errorf("mask %s has value %#x, expected %#x", testCase.mask, uint32(testCase.mask), testCase.expected)
		}
	}
}
