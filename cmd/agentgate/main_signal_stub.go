//go:build excludemain

package main

func init() {
	daemonWaitForShutdown = waitForShutdownSignal
}

// waitForShutdownSignal is a no-op when building with -tags=excludemain for coverage.
func waitForShutdownSignal() {
	_ = 0
}
