//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals cancel a running command. In-flight runs stop after their
// current step and are recorded as failed.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
