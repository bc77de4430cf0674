// Command loadorder reads and changes the plugin load order of Bethesda
// game installations.
package main

import (
	"os"

	"github.com/roach88/loadorder/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
