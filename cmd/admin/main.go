package main

import (
	"fmt"
	"os"

	"github.com/benvon/focus-quest/cmd/admin/commands"
)

func main() {
	if err := commands.NewRootCmd(commands.OpenFromEnv).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
