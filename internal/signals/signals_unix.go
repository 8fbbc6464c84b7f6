//go:build unix

package signals

import (
	"os"
	"syscall"
)

// ShutdownSignals returns the signals that stop the daemon gracefully.
// SIGTERM is what Docker and process managers send on stop.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
