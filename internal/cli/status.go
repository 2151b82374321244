package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/soyeahso/certagent/internal/config"
	"github.com/soyeahso/certagent/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show certagent status and configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, version.Info())
			fmt.Fprintln(out)

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}
			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:  not found (using defaults)")
			}

			fmt.Fprintf(out, "LLM:     provider=%s model=%s baseUrl=%s\n", cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL)
			if len(cfg.LLM.Fallbacks) > 0 {
				fmt.Fprintf(out, "         fallbacks=%s\n", strings.Join(cfg.LLM.Fallbacks, ","))
			}
			if _, err := config.LoadCredentials(envFile); err != nil {
				fmt.Fprintln(out, "API key: missing (set GROQ_API_KEY)")
			} else {
				fmt.Fprintln(out, "API key: set")
			}
			fmt.Fprintf(out, "Agent:   id=%s name=%s maxToolIterations=%d\n", cfg.Agent.ID, cfg.Agent.Name, cfg.Agent.MaxToolIterations)

			bin := cfg.Browser.Bin
			if bin == "" {
				bin = "(auto)"
			}
			fmt.Fprintf(out, "Browser: bin=%s headless=%v wait=%ds\n", bin, cfg.Browser.IsHeadless(), cfg.Browser.WaitTimeoutSeconds)

			dbPath := paths.DBPath(cfg)
			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				fmt.Fprintf(out, "Store:   %s (not created; run `certagent certs init`)\n", dbPath)
			} else {
				db, err := openStore(cfg)
				if err != nil {
					fmt.Fprintf(out, "Store:   %s (error: %v)\n", dbPath, err)
				} else {
					n, err := newCertificationStore(db).Count(cmd.Context())
					db.Close()
					if err != nil {
						fmt.Fprintf(out, "Store:   %s (error: %v)\n", dbPath, err)
					} else {
						fmt.Fprintf(out, "Store:   %s (%d categories)\n", dbPath, n)
					}
				}
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
