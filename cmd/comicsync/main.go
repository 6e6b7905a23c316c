// Command comicsync keeps a local comics catalog in step with the provider
// catalog API.
package main

import (
	"fmt"
	"os"

	"github.com/zanemmiller2/pi-comic-scanner/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
