package cmd

import (
	"os"

	"github.com/fatih/color"
	isatty "github.com/mattn/go-isatty"
)

// IsTerminal indicates whether or not the specified file is attached to a
// terminal, including mintty-based terminals on Windows.
func IsTerminal(file *os.File) bool {
	descriptor := file.Fd()
	return isatty.IsTerminal(descriptor) || isatty.IsCygwinTerminal(descriptor)
}

// ConfigureColor enables colorized output only if standard output is a
// terminal and color hasn't been disabled. It returns whether or not color is
// enabled.
func ConfigureColor(disable bool) bool {
	color.NoColor = disable || os.Getenv("NO_COLOR") != "" || !IsTerminal(os.Stdout)
	return !color.NoColor
}
