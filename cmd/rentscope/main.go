package main

import (
	"os"

	"github.com/rentscope/backend/cmd/rentscope/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
