package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "crewmatch",
	Short: "Consultant matching engine with explainable scores",
	Long: `crewmatch matches consultants to project requirements using a local
LLM for role elicitation and embeddings for semantic search. Every match
comes with human-readable reasons.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		startCmd,
		stopCmd,
		statusCmd,
		matchCmd,
		teamCmd,
		chatCmd,
		consultantsCmd,
		overviewCmd,
		seedCmd,
		configCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
