// Command ionshuttle simulates carrier routing and gate scheduling on a
// trapped-ion junction lattice.
package main

import (
	"fmt"
	"os"

	"github.com/mewuto/ion-shuttler/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
