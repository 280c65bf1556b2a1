package cmd

import (
	"github.com/spf13/cobra"
)

// Mainify wraps an error-returning entry point to produce a standard Cobra
// entry point. Entry points that return their errors (instead of terminating
// the process themselves) can rely on deferred cleanup, and Mainify reports
// any returned error and exits with a non-zero status once that cleanup has
// run.
func Mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		if err := entry(command, arguments); err != nil {
			Fatal(err)
		}
	}
}
