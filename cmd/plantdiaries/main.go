// Command plantdiaries serves the plant diaries API and runs its import,
// backup and maintenance jobs.
package main

import (
	"os"

	"github.com/mesh-intelligence/plantdiaries/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
