// Package main is the entry point for the dsnedit CLI tool.
package main

import (
	"os"

	"github.com/koustreak/dsneditor/cmd/dsnedit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
