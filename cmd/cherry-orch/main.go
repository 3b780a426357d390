package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "cherry-orch",
		Short: "Cherry-pick campaign orchestrator",
		Long: `cherry-orch walks a range of commits and cherry-picks them one by one,
prompting per commit and recording every outcome in a ledger file.
An interrupted campaign resumes from the last recorded commit.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
