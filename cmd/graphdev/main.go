package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := buildRoot(os.Stdout)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot(out io.Writer) *cobra.Command {
	globalFlags := &GlobalFlags{}
	devFlags := &DevFlags{}

	root := &cobra.Command{
		Use:   "graphdev",
		Short: "Run GraphQL subgraphs locally for a development session",
		Long: `graphdev starts the processes behind your subgraphs, finds the GraphQL
endpoint each one serves and keeps a development session informed about
them. Every process is stopped when graphdev exits.

Examples:
  graphdev dev --config graphdev.toml
  graphdev dev --name products --command "npm run start"
  graphdev subgraphs`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&globalFlags.Socket, "socket", "", "development session socket (overrides config)")

	root.AddCommand(
		createDevCommand(globalFlags, devFlags),
		createSubgraphsCommand(globalFlags),
		createVersionCommand(),
	)
	return root
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the graphdev version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "graphdev %s\n", version)
			return err
		},
	}
}
