// Command annotstore builds and revises gene annotation stores.
package main

import (
	"os"

	"github.com/annotstore/annotstore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
