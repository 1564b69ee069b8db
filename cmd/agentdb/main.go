package main

import (
	"fmt"
	"os"

	"github.com/carlosnayan/agentdb/cmd/agentdb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", cmd.Warning("Error:"), err)
		os.Exit(1)
	}
}
