// Package cli implements the jrvi-web command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jrvi-web",
	Short: "Cognitive memory store and policy kernel for the JRVI dashboard",
	Long: "jrvi-web serves the JRVI demo dashboard API: an in-memory cognitive " +
		"memory store with scoring, decay and associations, fronted by a policy " +
		"kernel that routes, approves and audits every operation.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
