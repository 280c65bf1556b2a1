package extension

import (
	"strings"

	"github.com/mutagen-io/treewatch/pkg/filesystem/watching"
)

// WatcherComponentName is the name of the watcher component. It's also the
// source of every external event that the component emits.
const WatcherComponentName = "Watcher"

// WatcherComponent exposes a filesystem watcher to a host. Change
// notifications are emitted with the notification code as the message and the
// affected path as the data.
type WatcherComponent struct {
	*Component
	// watcher is the underlying watcher.
	watcher *watching.Watcher
}

// NewWatcherComponent creates a new watcher component that emits events to the
// specified host.
func NewWatcherComponent(host Host, options watching.Options) *WatcherComponent {
	// Create the component shell. The component is created before the watcher
	// so that the sink can reference it, but its error source is bound after.
	c := &WatcherComponent{}
	sink := watching.SinkFunc(func(notification watching.Notification) {
		c.Emit(string(notification.Code), notification.Path)
	})
	c.watcher = watching.NewWatcher(sink, options)
	c.Component = NewComponent(WatcherComponentName, host, c.watcher.Errors())

	// Push reported errors to the host.
	c.watcher.Errors().SetCallback(c.SendError)

	// Register methods.
	c.AddProcedure("Start", "Старт", 1, func(args []Value) error {
		path, err := stringArgument(args, 0)
		if err != nil {
			return err
		}
		return c.watcher.Start(path)
	})
	c.AddProcedure("Pause", "Пауза", 0, func([]Value) error {
		return c.watcher.Pause()
	})
	c.AddProcedure("Resume", "Продолжать", 0, func([]Value) error {
		return c.watcher.Resume()
	})
	c.AddProcedure("Stop", "Стоп", 0, func([]Value) error {
		return c.watcher.Stop()
	})

	// Register properties.
	c.AddProperty("Ignore", "Игнорировать",
		func() Value {
			return strings.Join(c.watcher.Ignore(), "\n")
		},
		func(value Value) error {
			list, ok := value.(string)
			if !ok {
				return ErrInvalidArgument
			}
			c.watcher.SetIgnore(splitIgnore(list))
			return nil
		},
	)
	c.AddProperty("State", "Состояние",
		func() Value {
			return c.watcher.State().String()
		},
		nil,
	)

	// Done.
	return c
}

// Watcher returns the underlying watcher.
func (c *WatcherComponent) Watcher() *watching.Watcher {
	return c.watcher
}

// Close stops the watcher and releases its resources. The component can't be
// started again afterward.
func (c *WatcherComponent) Close() error {
	return c.watcher.Close()
}

// splitIgnore splits a newline-separated ignore list, dropping blank entries.
func splitIgnore(list string) []string {
	var result []string
	for _, line := range strings.Split(list, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			result = append(result, line)
		}
	}
	return result
}
