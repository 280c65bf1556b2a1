package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mutagen-io/treewatch/cmd"
	"github.com/mutagen-io/treewatch/pkg/configuration"
	"github.com/mutagen-io/treewatch/pkg/filesystem/watching"
	"github.com/mutagen-io/treewatch/pkg/logging"
	"github.com/mutagen-io/treewatch/pkg/must"
	"github.com/mutagen-io/treewatch/pkg/profile"
	"github.com/mutagen-io/treewatch/pkg/treewatch"
)

// loadConfiguration loads the configuration file and applies command line
// overrides.
func loadConfiguration(command *cobra.Command) (*configuration.Configuration, error) {
	// Determine the configuration file path.
	path := watchConfiguration.configurationPath
	if path == "" {
		var err error
		if path, err = configuration.Path(); err != nil {
			return nil, errors.Wrap(err, "unable to compute configuration path")
		}
	}

	// Load the configuration.
	result, err := configuration.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load configuration")
	}

	// Apply overrides.
	if command.Flags().Changed("backend") {
		result.Backend = watchConfiguration.backend
	}
	result.Ignore = append(result.Ignore, watchConfiguration.ignore...)
	result.IgnorePatterns = append(result.IgnorePatterns, watchConfiguration.ignorePatterns...)
	if watchConfiguration.normalizeUnicode {
		result.NormalizeUnicode = true
	}
	if watchConfiguration.logLevel != "" {
		result.LogLevel = watchConfiguration.logLevel
	}

	// Revalidate with overrides in place.
	if err := result.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	// Success.
	return result, nil
}

// computeLogger computes the logger for a session. The environment takes
// precedence over the configuration file, which takes precedence over the
// root logger's level.
func computeLogger(config *configuration.Configuration) *logging.Logger {
	logger := logging.RootLogger
	if watchConfiguration.logLevel == "" && os.Getenv(treewatch.LogLevelEnvironmentVariable) != "" {
		if level, ok := logging.NameToLevel(os.Getenv(treewatch.LogLevelEnvironmentVariable)); ok {
			return logging.NewLogger(level).Sublogger("watch")
		}
	}
	if config.LogLevel != "" {
		if level, ok := logging.NameToLevel(config.LogLevel); ok {
			logger = logging.NewLogger(level)
		}
	}
	return logger.Sublogger("watch")
}

// serveMetrics starts serving metrics on the specified address. Serving
// failures are sent to the returned channel.
func serveMetrics(address string, logger *logging.Logger) (*http.Server, <-chan error, error) {
	// Create the listener.
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to create metrics listener")
	}

	// Create the server.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(logger.Writer(logging.LevelWarn), "", 0),
	}

	// Serve in a background Goroutine.
	serverErrors := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	// Success.
	logger.Infof("Serving metrics on %s", listener.Addr())
	return server, serverErrors, nil
}

// monitorTermination closes the returned channel if the watcher returns to the
// idle state on its own.
func monitorTermination(ctx context.Context, watcher *watching.Watcher) <-chan struct{} {
	terminated := make(chan struct{})
	go func() {
		var index uint64
		for {
			var state watching.State
			var err error
			if index, state, err = watcher.WaitForStateChange(ctx, index); err != nil {
				return
			} else if state == watching.StateIdle {
				close(terminated)
				return
			}
		}
	}()
	return terminated
}

func watchMain(command *cobra.Command, arguments []string) error {
	// Validate arguments.
	if len(arguments) != 1 {
		return errors.New("a single path must be specified")
	}

	// Load the environment file, if any. Existing variables aren't overridden.
	if watchConfiguration.environmentFile != "" {
		if err := godotenv.Load(watchConfiguration.environmentFile); err != nil {
			return errors.Wrap(err, "unable to load environment file")
		}
	}

	// Configure colorized output.
	cmd.ConfigureColor(watchConfiguration.noColor)

	// Load configuration and compute the logger.
	config, err := loadConfiguration(command)
	if err != nil {
		return err
	}
	logger := computeLogger(config)

	// Set up signal handling before creating infrastructure so that
	// termination doesn't interrupt initialization.
	signalTermination := make(chan os.Signal, 1)
	signal.Notify(signalTermination, cmd.TerminationSignals...)

	// Serve metrics if requested.
	var serverErrors <-chan error
	if watchConfiguration.metricsListen != "" {
		var server *http.Server
		if server, serverErrors, err = serveMetrics(watchConfiguration.metricsListen, logger); err != nil {
			return err
		}
		defer must.Close(server, logger)
	}

	// Start profiling if requested.
	if watchConfiguration.profile != "" {
		p, err := profile.Start(watchConfiguration.profile)
		if err != nil {
			return err
		}
		defer must.Stop(p, logger)
	}

	// Create the watcher and defer its closure.
	output := newPrinter(color.Output)
	watcher := watching.NewWatcher(output, config.Options(logger))
	defer must.Close(watcher, logger)

	// Start watching.
	start := time.Now()
	if err := watcher.Start(arguments[0]); err != nil {
		return err
	}

	// Monitor for the watcher terminating on its own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	terminated := monitorTermination(ctx, watcher)

	// Wait for termination.
	var result error
	select {
	case sig := <-signalTermination:
		logger.Debugf("Terminated by signal: %s", sig)
	case <-output.disconnected:
		result = errors.New("watch root disconnected")
	case <-terminated:
		if message := watcher.Errors().LastError(); message != "" {
			result = errors.New(message)
		} else {
			result = errors.New("watch terminated")
		}
	case err := <-serverErrors:
		result = errors.Wrap(err, "metrics server failure")
	}

	// Stop watching and print a summary.
	if err := watcher.Stop(); err != nil {
		cmd.Warning(err.Error())
	}
	if !watchConfiguration.quiet {
		output.summarize(os.Stderr, start, time.Now())
	}

	// Done.
	return result
}

var watchCommand = &cobra.Command{
	Use:   "watch <path>",
	Short: "Watch a directory tree and print change notifications",
	Run:   cmd.Mainify(watchMain),
}

// The backend flag is bound directly to a watching.Backend.
var _ pflag.Value = (*watching.Backend)(nil)

var watchConfiguration struct {
	// help indicates whether or not to show help information and exit.
	help bool
	// configurationPath is the path to the configuration file.
	configurationPath string
	// backend is the backend override.
	backend watching.Backend
	// ignore are additional ignore substrings.
	ignore []string
	// ignorePatterns are additional ignore patterns.
	ignorePatterns []string
	// normalizeUnicode forces Unicode normalization of delivered paths.
	normalizeUnicode bool
	// logLevel is the log level override.
	logLevel string
	// environmentFile is the path to an environment file to load.
	environmentFile string
	// metricsListen is the address on which to serve metrics.
	metricsListen string
	// noColor disables colorized output.
	noColor bool
	// quiet disables the termination summary.
	quiet bool
	// profile is the profile output prefix.
	profile string
}

func init() {
	// Grab a handle for the command line flags.
	flags := watchCommand.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message. Cobra will
	// still implement its logic automatically.
	flags.BoolVarP(&watchConfiguration.help, "help", "h", false, "Show help information")

	// Wire up configuration flags.
	flags.StringVarP(&watchConfiguration.configurationPath, "config", "c", "", "Specify the configuration file path (defaults to ~/"+configuration.DefaultConfigurationName+")")
	flags.Var(&watchConfiguration.backend, "backend", "Specify the event source backend (inotify|portable)")
	flags.StringArrayVarP(&watchConfiguration.ignore, "ignore", "i", nil, "Ignore paths containing the specified substring")
	flags.StringArrayVar(&watchConfiguration.ignorePatterns, "ignore-pattern", nil, "Ignore paths matching the specified pattern")
	flags.BoolVar(&watchConfiguration.normalizeUnicode, "normalize-unicode", false, "Normalize delivered paths to NFC")
	flags.StringVar(&watchConfiguration.logLevel, "log-level", "", "Specify the log level")
	flags.StringVar(&watchConfiguration.environmentFile, "env-file", "", "Load environment variables from the specified file")
	flags.StringVar(&watchConfiguration.metricsListen, "metrics-listen", "", "Serve Prometheus metrics on the specified address")
	flags.BoolVar(&watchConfiguration.noColor, "no-color", false, "Disable colorized output")
	flags.BoolVarP(&watchConfiguration.quiet, "quiet", "q", false, "Don't print a summary on termination")
	flags.StringVar(&watchConfiguration.profile, "profile", "", "Write CPU and heap profiles with the specified path prefix")
	flags.MarkHidden("profile")
}
