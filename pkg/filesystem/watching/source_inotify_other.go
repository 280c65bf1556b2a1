//go:build !linux

package watching

import (
	"errors"
)

// inotifySupported indicates whether or not the inotify backend is available on
// the current platform.
const inotifySupported = false

// openInotifySource is unavailable on this platform.
func openInotifySource(_ SourceOptions) (Source, error) {
	return nil, errors.New("inotify backend unsupported on this platform")
}
