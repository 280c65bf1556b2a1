package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mutagen-io/treewatch/pkg/filesystem/watching"
)

// listedBackends are the non-default backends, in display order.
var listedBackends = []watching.Backend{
	watching.BackendInotify,
	watching.BackendPortable,
}

func backendsMain(_ *cobra.Command, _ []string) error {
	for _, backend := range listedBackends {
		name, err := backend.MarshalText()
		if err != nil {
			return err
		}
		availability := color.GreenString("supported")
		if !backend.Supported() {
			availability = color.YellowString("unsupported")
		}
		fmt.Fprintf(color.Output, "%-10s %-10s %s\n", name, backend.Description(), availability)
	}
	return nil
}

var backendsCommand = &cobra.Command{
	Use:          "backends",
	Short:        "List event source backends and their availability",
	Args:         cobra.NoArgs,
	RunE:         backendsMain,
	SilenceUsage: true,
}

var backendsConfiguration struct {
	// help indicates whether or not to show help information and exit.
	help bool
}

func init() {
	// Grab a handle for the command line flags.
	flags := backendsCommand.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message. Cobra will
	// still implement its logic automatically.
	flags.BoolVarP(&backendsConfiguration.help, "help", "h", false, "Show help information")
}
