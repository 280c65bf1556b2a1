package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mutagen-io/treewatch/pkg/treewatch"
)

func versionMain(_ *cobra.Command, _ []string) error {
	// Print version information.
	fmt.Println(treewatch.Version)

	// Success.
	return nil
}

var versionCommand = &cobra.Command{
	Use:          "version",
	Short:        "Show version information",
	Args:         cobra.NoArgs,
	RunE:         versionMain,
	SilenceUsage: true,
}

var versionConfiguration struct {
	// help indicates whether or not to show help information and exit.
	help bool
}

func init() {
	// Grab a handle for the command line flags.
	flags := versionCommand.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message. Cobra will
	// still implement its logic automatically.
	flags.BoolVarP(&versionConfiguration.help, "help", "h", false, "Show help information")
}
