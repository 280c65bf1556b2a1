package logging

import (
	"os"

	"github.com/mutagen-io/treewatch/pkg/treewatch"
)

// RootLogger is the root logger from which all other loggers derive. Its level
// is taken from the TREEWATCH_LOG_LEVEL environment variable, falling back to
// LevelDebug if debugging is enabled and LevelInfo otherwise.
var RootLogger *Logger

func init() {
	level := LevelInfo
	if treewatch.DebugEnabled {
		level = LevelDebug
	}
	if name := os.Getenv(treewatch.LogLevelEnvironmentVariable); name != "" {
		if l, ok := NameToLevel(name); ok {
			level = l
		}
	}
	RootLogger = NewLogger(level)
}
