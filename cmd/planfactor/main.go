// Planfactor: goal-structuring and factor-scoring MCP server.
//
// Usage:
//
//	planfactor serve     # Start the MCP server (stdio transport)
//	planfactor version   # Print the version
package main

import (
	"os"

	"github.com/planfactor/planfactor/internal/cli"
	"github.com/planfactor/planfactor/internal/server"
)

func main() {
	if err := cli.NewRootCommand(server.Version).Execute(); err != nil {
		os.Exit(1)
	}
}
