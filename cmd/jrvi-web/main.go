package main

import (
	"os"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
