package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soyeahso/certagent/internal/agent"
	"github.com/soyeahso/certagent/internal/config"
	"github.com/soyeahso/certagent/internal/llm"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		model  string
		stream bool
		usage  bool
	)

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask the agent a question and print its answer",
		Long: "Ask the agent a question. The query is read from the arguments, or from stdin when none are given.\n\n" +
			"Example:\n  certagent ask \"How many credit points can I get for this badge? https://www.credly.com/badges/<id>/public_url\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Credentials first: nothing is opened or launched without them.
			creds, err := config.LoadCredentials(envFile)
			if err != nil {
				return err
			}

			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading query from stdin: %w", err)
				}
				query = strings.TrimSpace(string(data))
			}
			if query == "" {
				return fmt.Errorf("empty query")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if model != "" {
				cfg.LLM.Model = model
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, certs, err := openCertifications(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			runner := newRunner(cfg, creds, newResolver(certs), newExtractor(cfg))
			var result *agent.RunResult
			if stream {
				// Raw deltas still carry tool_call blocks, so they go to stderr
				// as progress; stdout only receives the cleaned answer.
				progress := cmd.ErrOrStderr()
				result, err = runner.RunStream(ctx, query, func(evt llm.StreamEvent) {
					switch evt.Type {
					case "delta":
						fmt.Fprint(progress, evt.Content)
					case "tool_start", "tool_result", "tool_error":
						fmt.Fprintf(progress, "\n[%s]\n", evt.Content)
					}
				})
				if err == nil {
					fmt.Fprintln(progress)
				}
			} else {
				result, err = runner.Run(ctx, query)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Response)
			printUsage(cmd, usage, result.Model, result.Usage, result.Rounds)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "LLM model to use (default from config)")
	cmd.Flags().BoolVar(&stream, "stream", false, "stream the response")
	cmd.Flags().BoolVar(&usage, "usage", false, "print model and token usage to stderr")

	return cmd
}

func printUsage(cmd *cobra.Command, enabled bool, model string, u llm.Usage, rounds int) {
	if !enabled {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "\n[model=%s rounds=%d tokens=%d+%d]\n",
		model, rounds, u.InputTokens, u.OutputTokens)
}
