package main

import (
	"os"

	"github.com/wgomg/storyteller/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
