// Package main is the entry point for the maid CLI tool.
package main

import (
	"github.com/maid-docs/maid/internal/cmd"
)

func main() {
	cmd.Execute()
}
