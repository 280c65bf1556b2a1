// Package must provides helpers for deferred cleanup operations whose failures
// can only be logged.
package must

import (
	"io"

	"github.com/mutagen-io/treewatch/pkg/logging"
)

// Close closes c, logging any failure as a warning.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("Unable to close: %s", err.Error())
	}
}

// Stop stops s, logging any failure as a warning.
func Stop(s interface{ Stop() error }, logger *logging.Logger) {
	if err := s.Stop(); err != nil {
		logger.Warnf("Unable to stop: %s", err.Error())
	}
}
