package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "case-report",
		Short:         "Render case reports and statistics to files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newCaseCmd())
	cmd.AddCommand(newStatsCmd())
	return cmd
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
