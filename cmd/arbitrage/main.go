// Package main is the entry point for the graph arbitrage bot.
package main

import (
	"os"

	"github.com/fd1az/graph-arbitrage/cmd/arbitrage/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
