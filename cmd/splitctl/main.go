// Command splitctl settles expense files offline and queries a running
// groupsplit server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
