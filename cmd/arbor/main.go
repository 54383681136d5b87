package main

import (
	"github.com/arbor-labs/arbor-cli/internal/adapters/driving/cli"
)

// version is overridden at release time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
