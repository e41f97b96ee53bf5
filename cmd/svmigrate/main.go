// Command svmigrate applies and rolls back versioned schema migrations.
package main

import (
	"os"

	"github.com/svco/svmigrate/cmd/svmigrate/commands"
)

func main() {
	os.Exit(commands.Execute())
}
