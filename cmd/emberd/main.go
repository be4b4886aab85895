package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "emberd",
		Short: "emberd is an event-driven HTTP/1.1 gateway",
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newStatsCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
