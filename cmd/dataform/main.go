// Package main provides the dataform CLI.
package main

import (
	"fmt"
	"os"

	"github.com/db-magnus/dataform/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
