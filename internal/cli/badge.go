package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/soyeahso/certagent/internal/tools"
	"github.com/spf13/cobra"
)

func newBadgeCmd() *cobra.Command {
	var waitSeconds int

	cmd := &cobra.Command{
		Use:   "badge <url>",
		Short: "Extract details from a public Credly badge page",
		Long:  "Runs the same extraction the agent's parse_credly_badge tool uses and prints its JSON output.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if waitSeconds > 0 {
				cfg.Browser.WaitTimeoutSeconds = waitSeconds
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tool := tools.NewParseBadge(newExtractor(cfg), log)
			input, err := json.Marshal(map[string]string{"url": args[0]})
			if err != nil {
				return err
			}
			out, err := tool.Execute(ctx, string(input))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&waitSeconds, "wait", 0, "seconds to wait for the badge header (default from config)")
	return cmd
}
