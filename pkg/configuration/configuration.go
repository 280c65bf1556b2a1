package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mutagen-io/treewatch/pkg/encoding"
	"github.com/mutagen-io/treewatch/pkg/filesystem/watching"
	"github.com/mutagen-io/treewatch/pkg/logging"
)

const (
	// DefaultConfigurationName is the name of the configuration file that
	// Path resolves within the user's home directory.
	DefaultConfigurationName = ".treewatch.yml"
	// minimumReadBufferSize is the smallest read buffer that can hold a single
	// maximally sized inotify record.
	minimumReadBufferSize = 4 * 1024
)

// Configuration is the YAML configuration object type.
type Configuration struct {
	// Backend specifies the event source backend.
	Backend watching.Backend `yaml:"backend"`
	// Ignore specifies substrings that exclude any path containing them.
	Ignore []string `yaml:"ignore"`
	// IgnorePatterns specifies doublestar glob patterns, evaluated relative to
	// the watch root, that exclude matching paths.
	IgnorePatterns []string `yaml:"ignorePatterns"`
	// ReadBufferSize specifies the size of the buffer used to read records
	// from the event source. It can be specified in human-friendly units. A
	// value of 0 specifies that the default size should be used.
	ReadBufferSize ByteSize `yaml:"readBufferSize"`
	// NormalizeUnicode specifies whether or not delivered paths should be
	// converted to Unicode NFC form.
	NormalizeUnicode bool `yaml:"normalizeUnicode"`
	// LogLevel specifies the logging level name. An empty value leaves the
	// level derived from the environment untouched.
	LogLevel string `yaml:"logLevel"`
}

// Default returns the default configuration.
func Default() *Configuration {
	return &Configuration{
		Backend: watching.BackendDefault,
	}
}

// Path returns the path of the YAML configuration file in the user's home
// directory. It does not verify that the file exists.
func Path() (string, error) {
	// Compute the path to the user's home directory.
	homeDirectoryPath, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to compute path to home directory: %w", err)
	}

	// Success.
	return filepath.Join(homeDirectoryPath, DefaultConfigurationName), nil
}

// Load attempts to load a YAML configuration file from the specified path. If
// the file does not exist, the default configuration is returned. The resulting
// configuration is validated before being returned.
func Load(path string) (*Configuration, error) {
	// Create the target configuration object with default values populated.
	result := Default()

	// Attempt to load. A non-existent file leaves the defaults in place.
	if err := encoding.LoadAndUnmarshalYAML(path, result); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Validate the result.
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Success.
	return result, nil
}

// Validate ensures that the configuration is valid.
func (c *Configuration) Validate() error {
	// Validate the backend.
	if !c.Backend.IsDefault() && !c.Backend.Supported() {
		return errors.New("unsupported backend")
	}

	// Validate ignore substrings.
	for _, ignore := range c.Ignore {
		if ignore == "" {
			return errors.New("empty ignore entry")
		}
	}

	// Validate ignore patterns.
	for _, pattern := range c.IgnorePatterns {
		if err := watching.ValidateIgnorePattern(pattern); err != nil {
			return fmt.Errorf("invalid ignore pattern (%s): %w", pattern, err)
		}
	}

	// Validate the read buffer size.
	if c.ReadBufferSize != 0 && c.ReadBufferSize < minimumReadBufferSize {
		return fmt.Errorf("read buffer size too small (minimum %d bytes)", minimumReadBufferSize)
	}

	// Validate the log level.
	if c.LogLevel != "" {
		if _, ok := logging.NameToLevel(c.LogLevel); !ok {
			return fmt.Errorf("unknown log level: %s", c.LogLevel)
		}
	}

	// Success.
	return nil
}

// Options converts the configuration to watcher options using the specified
// logger.
func (c *Configuration) Options(logger *logging.Logger) watching.Options {
	return watching.Options{
		Backend:          c.Backend,
		Ignore:           c.Ignore,
		IgnorePatterns:   c.IgnorePatterns,
		ReadBufferSize:   int(c.ReadBufferSize),
		NormalizeUnicode: c.NormalizeUnicode,
		Logger:           logger,
	}
}
