package watching

import (
	"testing"
)

// TestKindForMask tests mask classification, including priority when multiple
// bits are set.
func TestKindForMask(t *testing.T) {
	testCases := []struct {
		mask     Mask
		expected Kind
	}{
		{MaskCreate, KindCreated},
		{MaskCreate | MaskIsDirectory, KindCreated},
		{MaskDelete, KindRemoved},
		{MaskModify, KindModified},
		{MaskMovedFrom, KindRenamedFrom},
		{MaskMovedTo, KindRenamedTo},
		{MaskDeleteSelf, KindSelfRemoved},
		{MaskMoveSelf, KindSelfMoved},
		{MaskUnmount, KindUnmounted},
		{MaskOverflow, KindOverflow},
		{MaskIgnored, KindIgnored},
		{MaskMovedFrom | MaskCreate, KindRenamedFrom},
		{MaskCreate | MaskDelete, KindCreated},
		{MaskDeleteSelf | MaskModify, KindSelfRemoved},
		{MaskModify | MaskIgnored, KindModified},
		{MaskIsDirectory, KindAny},
		{0, KindAny},
	}
	for _, testCase := range testCases {
		if kind := kindForMask(testCase.mask); kind != testCase.expected {
			t.Errorf("mask %s classified as %s, expected %s", testCase.mask, kind, testCase.expected)
		}
	}
}

// TestMaskString tests mask formatting.
func TestMaskString(t *testing.T) {
	if s := (MaskCreate | MaskIsDirectory).String(); s != "CREATE|ISDIR" {
		t.Error("unexpected mask string:", s)
	}
	if s := Mask(0).String(); s != "0" {
		t.Error("unexpected empty mask string:", s)
	}
}

// TestCodeFor tests translation of events to external codes.
func TestCodeFor(t *testing.T) {
	testCases := []struct {
		kind     Kind
		isDir    bool
		expected Code
	}{
		{KindCreated, false, CodeFileAdded},
		{KindRemoved, false, CodeFileRemoved},
		{KindModified, false, CodeFileChanged},
		{KindRenamedFrom, false, CodeFileRenamedFrom},
		{KindRenamedTo, false, CodeFileRenamedTo},
		{KindCreated, true, CodeDirectoryAdded},
		{KindRemoved, true, CodeDirectoryRemoved},
		{KindModified, true, CodeDirectoryChanged},
		{KindRenamedFrom, true, CodeDirectoryRenamedFrom},
		{KindRenamedTo, true, CodeDirectoryRenamedTo},
		{KindSelfRemoved, true, CodeRootRemoved},
		{KindSelfMoved, true, CodeRootMoved},
		{KindUnmounted, true, CodeUnmounted},
		{KindOverflow, true, CodeOverflow},
		{KindIgnored, true, CodeDisconnected},
	}
	for _, testCase := range testCases {
		event := SystemEvent{Kind: testCase.kind, Path: "/root/x", IsDir: testCase.isDir}
		code, ok := CodeFor(event)
		if !ok {
			t.Errorf("no code for %s (directory: %t)", testCase.kind, testCase.isDir)
		} else if code != testCase.expected {
			t.Errorf("code for %s (directory: %t) is %q, expected %q", testCase.kind, testCase.isDir, code, testCase.expected)
		}
	}
	if _, ok := CodeFor(SystemEvent{Kind: KindAny}); ok {
		t.Error("catch-all kind translated to a code")
	}
}

// TestCodeDescription tests that every code has a description.
func TestCodeDescription(t *testing.T) {
	for _, code := range []Code{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "a", "b", "c", "d", "e"} {
		if code.Description() == "unknown" {
			t.Errorf("code %q has no description", code)
		}
	}
	if Code("z").Description() != "unknown" {
		t.Error("invalid code has a description")
	}
}
