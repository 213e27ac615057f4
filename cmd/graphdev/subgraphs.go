package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/graphdev/internal/config"
	"github.com/loykin/graphdev/internal/notify"
)

func createSubgraphsCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "subgraphs",
		Short: "List the subgraphs of the running development session",
		RunE: func(cmd *cobra.Command, args []string) error {
			socket, err := resolveSocket(globalFlags)
			if err != nil {
				return err
			}
			return listSubgraphs(cmd.Context(), notify.NewSender(socket), cmd.OutOrStdout())
		},
	}
}

// resolveSocket picks the socket from the flag, then the config file.
func resolveSocket(gf *GlobalFlags) (string, error) {
	if gf.Socket != "" {
		return gf.Socket, nil
	}
	cfg, err := config.Load(gf.ConfigPath)
	if err != nil {
		return "", err
	}
	return cfg.Socket, nil
}

func listSubgraphs(ctx context.Context, s *notify.Sender, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.Ping(ctx) {
		return fmt.Errorf("no development session is listening on %s", s.Socket())
	}
	subs, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		_, err := fmt.Fprintln(out, "no subgraphs registered")
		return err
	}
	_, _ = fmt.Fprintf(out, "%-20s %-40s %s\n", "NAME", "URL", "UPDATED")
	for _, sg := range subs {
		_, _ = fmt.Fprintf(out, "%-20s %-40s %s\n", sg.Name, sg.URL, sg.UpdatedAt.Local().Format(time.TimeOnly))
	}
	return nil
}
