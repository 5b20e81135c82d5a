// The citescope binary is the operator CLI for the citation-analysis
// pipeline.
package main

import (
	"os"

	"github.com/turtacn/CiteScope/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
