package watching

import (
	"fmt"
)

// Backend identifies the event source implementation used by a watcher. It is
// selected once, at configuration time.
type Backend uint8

const (
	// BackendDefault selects the preferred backend for the current platform.
	BackendDefault Backend = iota
	// BackendInotify selects the native Linux inotify backend.
	BackendInotify
	// BackendPortable selects the fsnotify-based backend, which is available
	// on all platforms.
	BackendPortable
)

// IsDefault indicates whether or not the backend is BackendDefault.
func (b Backend) IsDefault() bool {
	return b == BackendDefault
}

// MarshalText implements encoding.TextMarshaler.MarshalText.
func (b Backend) MarshalText() ([]byte, error) {
	var result string
	switch b {
	case BackendDefault:
	case BackendInotify:
		result = "inotify"
	case BackendPortable:
		result = "portable"
	default:
		result = "unknown"
	}
	return []byte(result), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.UnmarshalText.
func (b *Backend) UnmarshalText(textBytes []byte) error {
	// Convert the bytes to a string.
	text := string(textBytes)

	// Convert to a backend.
	switch text {
	case "", "default":
		*b = BackendDefault
	case "inotify":
		*b = BackendInotify
	case "portable":
		*b = BackendPortable
	default:
		return fmt.Errorf("unknown backend specification: %s", text)
	}

	// Success.
	return nil
}

// Supported indicates whether or not a particular backend is a valid,
// non-default value that can be used on the current platform.
func (b Backend) Supported() bool {
	switch b {
	case BackendInotify:
		return inotifySupported
	case BackendPortable:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of a backend.
func (b Backend) Description() string {
	switch b {
	case BackendDefault:
		return "Default"
	case BackendInotify:
		return "inotify"
	case BackendPortable:
		return "Portable"
	default:
		return "Unknown"
	}
}

// resolve converts BackendDefault to the preferred backend for the current
// platform. Other values are returned unmodified.
func (b Backend) resolve() Backend {
	if b.IsDefault() {
		if inotifySupported {
			return BackendInotify
		}
		return BackendPortable
	}
	return b
}

// String implements pflag.Value.String.
func (b *Backend) String() string {
	if b == nil || b.IsDefault() {
		return "default"
	}
	text, _ := b.MarshalText()
	return string(text)
}

// Set implements pflag.Value.Set.
func (b *Backend) Set(value string) error {
	return b.UnmarshalText([]byte(value))
}

// Type implements pflag.Value.Type.
func (b *Backend) Type() string {
	return "backend"
}
