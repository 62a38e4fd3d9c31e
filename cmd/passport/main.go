// cmd/passport/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "passport",
		Short: "Credit passport tooling",
		Long: `Offline tooling for the credit passport workers.

Available subcommands:
  score    - Score a business profile without touching any datastore
  registry - Inspect and edit the activity registry`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newScoreCmd(), newRegistryCmd())
	return root
}
