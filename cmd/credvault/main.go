package main

import (
	"os"

	"credvault/cmd/credvault/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
