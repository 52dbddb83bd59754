// Command scour removes stale temporary files and caches and monitors
// system resources.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
