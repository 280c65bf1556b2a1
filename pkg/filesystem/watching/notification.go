package watching

// Code is the single-character external notification code delivered to hosts.
type Code string

const (
	// CodeFileAdded indicates that a file was added.
	CodeFileAdded Code = "1"
	// CodeFileRemoved indicates that a file was removed.
	CodeFileRemoved Code = "2"
	// CodeFileChanged indicates that a file's contents changed.
	CodeFileChanged Code = "3"
	// CodeFileRenamedFrom carries the old name of a renamed file.
	CodeFileRenamedFrom Code = "4"
	// CodeFileRenamedTo carries the new name of a renamed file.
	CodeFileRenamedTo Code = "5"
	// CodeDirectoryAdded indicates that a directory was added.
	CodeDirectoryAdded Code = "6"
	// CodeDirectoryRemoved indicates that a directory was removed.
	CodeDirectoryRemoved Code = "7"
	// CodeDirectoryChanged indicates that a directory changed.
	CodeDirectoryChanged Code = "8"
	// CodeDirectoryRenamedFrom carries the old name of a renamed directory.
	CodeDirectoryRenamedFrom Code = "9"
	// CodeDirectoryRenamedTo carries the new name of a renamed directory.
	CodeDirectoryRenamedTo Code = "0"
	// CodeRootRemoved indicates that the watch root was removed.
	CodeRootRemoved Code = "a"
	// CodeRootMoved indicates that the watch root was moved.
	CodeRootMoved Code = "b"
	// CodeUnmounted indicates that a watched filesystem was unmounted.
	CodeUnmounted Code = "c"
	// CodeOverflow indicates that events were lost.
	CodeOverflow Code = "d"
	// CodeDisconnected indicates that the watch root's watch was retired.
	CodeDisconnected Code = "e"
)

// Description returns a human-readable description of the code.
func (c Code) Description() string {
	switch c {
	case CodeFileAdded:
		return "file added"
	case CodeFileRemoved:
		return "file removed"
	case CodeFileChanged:
		return "file changed"
	case CodeFileRenamedFrom:
		return "file renamed from"
	case CodeFileRenamedTo:
		return "file renamed to"
	case CodeDirectoryAdded:
		return "directory added"
	case CodeDirectoryRemoved:
		return "directory removed"
	case CodeDirectoryChanged:
		return "directory changed"
	case CodeDirectoryRenamedFrom:
		return "directory renamed from"
	case CodeDirectoryRenamedTo:
		return "directory renamed to"
	case CodeRootRemoved:
		return "watch root removed"
	case CodeRootMoved:
		return "watch root moved"
	case CodeUnmounted:
		return "filesystem unmounted"
	case CodeOverflow:
		return "event overflow"
	case CodeDisconnected:
		return "watch disconnected"
	default:
		return "unknown"
	}
}

// CodeFor translates a normalized event to its external code. It returns false
// if the event has no external representation.
func CodeFor(event SystemEvent) (Code, bool) {
	switch event.Kind {
	case KindCreated:
		return pick(event.IsDir, CodeDirectoryAdded, CodeFileAdded), true
	case KindRemoved:
		return pick(event.IsDir, CodeDirectoryRemoved, CodeFileRemoved), true
	case KindModified:
		return pick(event.IsDir, CodeDirectoryChanged, CodeFileChanged), true
	case KindRenamedFrom:
		return pick(event.IsDir, CodeDirectoryRenamedFrom, CodeFileRenamedFrom), true
	case KindRenamedTo:
		return pick(event.IsDir, CodeDirectoryRenamedTo, CodeFileRenamedTo), true
	case KindSelfRemoved:
		return CodeRootRemoved, true
	case KindSelfMoved:
		return CodeRootMoved, true
	case KindUnmounted:
		return CodeUnmounted, true
	case KindOverflow:
		return CodeOverflow, true
	case KindIgnored:
		return CodeDisconnected, true
	default:
		return "", false
	}
}

func pick(directory bool, directoryCode, fileCode Code) Code {
	if directory {
		return directoryCode
	}
	return fileCode
}

// Notification is an externally delivered change notification.
type Notification struct {
	// Code is the notification code.
	Code Code
	// Path is the absolute path that the notification concerns.
	Path string
}

// Sink receives notifications from a watcher. Deliver is invoked from the
// watcher's worker Goroutine and should not block for extended periods. It
// must not invoke the watcher's lifecycle methods, since those wait for the
// worker.
type Sink interface {
	Deliver(Notification)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Notification)

// Deliver implements Sink.Deliver.
func (f SinkFunc) Deliver(notification Notification) {
	f(notification)
}
