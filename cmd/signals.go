package cmd

import (
	"os"
	"syscall"
)

// TerminationSignals are the signals treated as requests to terminate. Both
// are emulated on Windows (SIGINT on Ctrl-C and Ctrl-Break and SIGTERM on
// console close, logoff, and shutdown events). SIGABRT and friends are left to
// the Go runtime.
var TerminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}
