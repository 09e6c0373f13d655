// grove is the CLI for orchestrating parallel coding-agent workspaces.
package main

import (
	"os"

	"github.com/mvessia/grove/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
