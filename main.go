package main

import (
	"os"

	"github.com/xcs-tools/bcg-ident/lib/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
