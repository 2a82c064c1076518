package main

import (
	"os"

	"github.com/ferryhq/ferrytask/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
