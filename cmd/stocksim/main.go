package main

import (
	"os"

	"github.com/wonny/stocksim/cmd/stocksim/commands"
)

// main is the entry point for the stocksim CLI
// ⭐ Single CLI entry point: go run ./cmd/stocksim [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
