package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sp2025/darkwatch/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:           "darkwatch",
		Short:         "Keyword severity rules and crawler control API",
		Version:       version.Full(),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runServe,
	}

	root.AddCommand(newServeCmd(), newSeedCmd(), newScoreCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
