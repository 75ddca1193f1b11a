// Command jwpure allocates JWST pure-parallel slots from a CSV inventory.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/jwpure/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
