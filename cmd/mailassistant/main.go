package main

import (
	"os"

	"github.com/nhle/mail-assistant/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
