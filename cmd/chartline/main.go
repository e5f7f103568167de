// Command chartline is the SQL lineage CLI and API server.
package main

import (
	"os"

	"github.com/chartline-io/chartline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
