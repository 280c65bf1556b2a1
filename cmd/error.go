package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	// warningPrefix colors the prefix of warning messages.
	warningPrefix = color.New(color.FgYellow, color.Bold)
	// errorPrefix colors the prefix of error messages.
	errorPrefix = color.New(color.FgRed, color.Bold)
)

// Warning prints a warning message to standard error.
func Warning(message string) {
	fmt.Fprintln(color.Error, warningPrefix.Sprint("Warning:"), message)
}

// Error prints an error message to standard error.
func Error(err error) {
	fmt.Fprintln(color.Error, errorPrefix.Sprint("Error:"), err)
}

// Fatal prints an error message to standard error and then terminates the
// process with an error exit code.
func Fatal(err error) {
	Error(err)
	os.Exit(1)
}
