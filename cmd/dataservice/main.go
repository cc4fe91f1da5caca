// Command dataservice compiles service specs, loads rows and runs
// restricted SELECT statements against them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/dataservice/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "dataservice:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
