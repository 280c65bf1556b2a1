package treewatch

import (
	"os"
)

const (
	// LogLevelEnvironmentVariable is the environment variable used to set the
	// root log level.
	LogLevelEnvironmentVariable = "TREEWATCH_LOG_LEVEL"
)

// DebugEnabled controls whether or not debugging is enabled. It is set
// automatically based on the TREEWATCH_DEBUG environment variable.
var DebugEnabled bool

func init() {
	// Check whether or not debugging should be enabled.
	DebugEnabled = os.Getenv("TREEWATCH_DEBUG") == "1"
}
