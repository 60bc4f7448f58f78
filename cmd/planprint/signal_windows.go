//go:build windows

package main

import "os"

// shutdownSignals stop the server gracefully.
// Note: syscall.SIGTERM is not available on Windows.
var shutdownSignals = []os.Signal{os.Interrupt}
