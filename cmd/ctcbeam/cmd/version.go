package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/ctcbeam/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "ctcbeam version %s\n", info.Version)
			_, _ = fmt.Fprintf(out, "Commit: %s\n", info.GitCommit)
			_, _ = fmt.Fprintf(out, "Built: %s\n", info.BuildDate)
			_, err := fmt.Fprintf(out, "Go: %s %s\n", info.GoVersion, info.Platform)
			return err
		},
	}
}
