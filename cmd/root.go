package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "teamwiki",
	Short: "Team wiki with semantic search",
	Long: `teamwiki is a team-scoped wiki service. Articles are embedded into a
vector index and served through a retrieval pipeline that filters, reranks
and optionally synthesizes an answer from the matching articles.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
