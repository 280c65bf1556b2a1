package watching

import (
	"errors"
	"fmt"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignorePattern is a compiled doublestar ignore pattern.
type ignorePattern struct {
	// pattern is the pattern, stripped of any leading slash.
	pattern string
	// matchLeaf indicates whether or not the pattern should also be tested
	// against the final component of a path.
	matchLeaf bool
}

// newIgnorePattern validates and compiles an ignore pattern.
func newIgnorePattern(pattern string) (*ignorePattern, error) {
	// Ensure that the pattern is non-empty.
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}

	// Check if this is an absolute pattern. If so, remove the forward slash
	// prefix, since it won't enter into pattern matching.
	var absolute bool
	if pattern[0] == '/' {
		absolute = true
		pattern = pattern[1:]
	}
	if pattern == "" {
		return nil, errors.New("root pattern")
	}

	// Attempt to do a match with the pattern to ensure validity. We have to
	// match against a non-empty path, otherwise bad pattern errors won't be
	// detected.
	if _, err := doublestar.Match(pattern, "a"); err != nil {
		return nil, fmt.Errorf("unable to validate pattern: %w", err)
	}

	// Success.
	return &ignorePattern{
		pattern:   pattern,
		matchLeaf: !absolute && strings.IndexByte(pattern, '/') < 0,
	}, nil
}

// matches indicates whether or not the pattern matches the specified
// slash-separated path, which is relative to the watch root.
func (i *ignorePattern) matches(path string) bool {
	if match, _ := doublestar.Match(i.pattern, path); match {
		return true
	}
	if i.matchLeaf {
		if match, _ := doublestar.Match(i.pattern, pathpkg.Base(path)); match {
			return true
		}
	}
	return false
}

// ValidateIgnorePattern ensures that an ignore pattern is valid.
func ValidateIgnorePattern(pattern string) error {
	_, err := newIgnorePattern(pattern)
	return err
}

// IgnoreList determines whether or not paths are excluded from watching. A path
// is excluded if it contains any of the list's substrings or if its root-relative
// form matches any of the list's patterns. The zero value excludes nothing.
type IgnoreList struct {
	// root is the watch root against which patterns are evaluated.
	root string
	// substrings are the exclusion substrings.
	substrings []string
	// patterns are the compiled exclusion patterns.
	patterns []*ignorePattern
}

// NewIgnoreList creates a new ignore list for the specified watch root. Empty
// substrings are discarded.
func NewIgnoreList(root string, substrings, patterns []string) (*IgnoreList, error) {
	// Copy non-empty substrings.
	list := &IgnoreList{root: root}
	for _, substring := range substrings {
		if substring != "" {
			list.substrings = append(list.substrings, substring)
		}
	}

	// Compile patterns.
	for _, pattern := range patterns {
		compiled, err := newIgnorePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern (%s): %w", pattern, err)
		}
		list.patterns = append(list.patterns, compiled)
	}

	// Success.
	return list, nil
}

// Matches indicates whether or not the specified absolute path is excluded.
func (l *IgnoreList) Matches(path string) bool {
	if l == nil {
		return false
	}

	// Check substrings.
	for _, substring := range l.substrings {
		if strings.Contains(path, substring) {
			return true
		}
	}

	// Check patterns against the root-relative path. The root itself and paths
	// outside of it are never matched by patterns.
	if len(l.patterns) > 0 {
		relative, err := filepath.Rel(l.root, path)
		if err != nil || relative == "." || relative == ".." ||
			strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
			return false
		}
		relative = filepath.ToSlash(relative)
		for _, pattern := range l.patterns {
			if pattern.matches(relative) {
				return true
			}
		}
	}

	// No match.
	return false
}
