// Command ontogen compiles ontology files to a canonical IR and governs
// how they evolve against a recorded baseline.
package main

import (
	"os"

	"github.com/roach88/ontogen/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
