// Command streamsim loads streamfab pipeline scenarios and either runs
// them to completion and prints their traces, or serves their metrics
// and a health check over HTTP.
package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "streamsim: maxprocs.Set: %v\n", err)
	}
	Execute()
}
